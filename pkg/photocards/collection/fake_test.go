package collection

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

var errBackend = errors.New("backend unavailable")

// fakeStore is an in-memory backend.Store.
type fakeStore struct {
	mu      sync.Mutex
	groups  []models.Group
	items   map[uint]*models.CollectionItem
	updates []backend.Fields
	listed  []backend.CardQuery

	failList   bool
	failUpdate bool
	failFind   bool
	// blockList, when set, is received from before ListCards returns
	blockList chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[uint]*models.CollectionItem{}}
}

func (f *fakeStore) addMember(groupName, memberName string) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	gi := -1
	for i := range f.groups {
		if f.groups[i].Name == groupName {
			gi = i
		}
	}
	if gi < 0 {
		f.groups = append(f.groups, models.Group{ID: uint(len(f.groups) + 1), Name: groupName})
		gi = len(f.groups) - 1
	}
	id := uint(100*(gi+1) + len(f.groups[gi].Members) + 1)
	f.groups[gi].Members = append(f.groups[gi].Members, models.Member{ID: id, GroupID: f.groups[gi].ID, Name: memberName})
	return id
}

func (f *fakeStore) addCard(id uint, status models.Status, memberID uint, img string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &models.CollectionItem{ID: id, Status: status, MemberID: &memberID, CreatedAt: createdAt}
	if img != "" {
		item.ImageURL = &img
	}
	f.items[id] = item
}

func (f *fakeStore) member(id uint) *models.Member {
	for gi := range f.groups {
		for _, m := range f.groups[gi].Members {
			if m.ID == id {
				g := f.groups[gi]
				g.Members = nil
				m.Group = &g
				return &m
			}
		}
	}
	return nil
}

func (f *fakeStore) get(id uint) models.CollectionItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errBackend
	}
	return append([]models.Group(nil), f.groups...), nil
}

func (f *fakeStore) ListCards(ctx context.Context, q backend.CardQuery) ([]models.CollectionItem, error) {
	if f.blockList != nil {
		<-f.blockList
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, q)
	if f.failList {
		return nil, errBackend
	}

	var out []models.CollectionItem
	for _, item := range f.items {
		if q.Status != "" && item.Status != q.Status {
			continue
		}
		if q.MemberID != nil && (item.MemberID == nil || *item.MemberID != *q.MemberID) {
			continue
		}
		row := *item
		if row.MemberID != nil {
			row.Member = f.member(*row.MemberID)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Order == backend.OrderImagesFirst {
			if (a.ImageURL == nil) != (b.ImageURL == nil) {
				return a.ImageURL != nil
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) FindMemberID(ctx context.Context, groupName, memberName string) (uint, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFind {
		return 0, false, errBackend
	}
	for _, g := range f.groups {
		if g.Name != groupName {
			continue
		}
		for _, m := range g.Members {
			if m.Name == memberName {
				return m.ID, true, nil
			}
		}
	}
	return 0, false, nil
}

func (f *fakeStore) UpdateCard(ctx context.Context, id uint, fields backend.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return errBackend
	}
	item, ok := f.items[id]
	if !ok {
		return backend.ErrNotFound
	}
	f.updates = append(f.updates, fields)
	for k, v := range fields {
		switch k {
		case "image_url":
			if v == nil {
				item.ImageURL = nil
			} else {
				s := v.(string)
				item.ImageURL = &s
			}
		case "description":
			s := v.(string)
			item.Description = &s
		case "status":
			item.Status = v.(models.Status)
		case "member_id":
			m := v.(uint)
			item.MemberID = &m
		case "is_favorite":
			item.IsFavorite = v.(bool)
		}
	}
	return nil
}

// fakeObjects is an in-memory backend.ObjectStore.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]string
	removed []string

	failUpload bool
	failRemove bool
	// uploadStarted and releaseUpload let a test hold an upload in flight
	uploadStarted chan struct{}
	releaseUpload chan struct{}
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]string{}}
}

func (f *fakeObjects) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if f.uploadStarted != nil {
		close(f.uploadStarted)
		<-f.releaseUpload
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return errBackend
	}
	f.objects[key] = string(data)
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example.com/storage/v1/object/public/cards/" + key
}

func (f *fakeObjects) KeyFromURL(url string) (string, bool) {
	_, key, ok := strings.Cut(url, "/cards/")
	return key, ok && key != ""
}

func (f *fakeObjects) Remove(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, keys...)
	if f.failRemove {
		return errBackend
	}
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

// prompts records confirmation questions and answers them with answer.
type prompts struct {
	asked  []string
	answer bool
}

func (p *prompts) confirm(message string) bool {
	p.asked = append(p.asked, message)
	return p.answer
}
