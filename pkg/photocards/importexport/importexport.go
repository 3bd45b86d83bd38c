// Package importexport moves the collection in and out of the database as
// a nested group/member/card document in JSON or YAML.
package importexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mikepea/photocards/pkg/photocards/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Document is the import/export file format. Unassigned holds cards that
// belong to no member.
type Document struct {
	Groups     []GroupEntry `json:"groups" yaml:"groups"`
	Unassigned []CardEntry  `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
}

// GroupEntry is one group and its members
type GroupEntry struct {
	Name    string        `json:"name" yaml:"name"`
	Members []MemberEntry `json:"members" yaml:"members"`
}

// MemberEntry is one member and their cards
type MemberEntry struct {
	Name  string      `json:"name" yaml:"name"`
	Cards []CardEntry `json:"cards,omitempty" yaml:"cards,omitempty"`
}

// CardEntry is one card. An empty status means wishlist; an empty
// image_url makes the card a placeholder.
type CardEntry struct {
	Status      models.Status `json:"status,omitempty" yaml:"status,omitempty"`
	ImageURL    string        `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	IsFavorite  bool          `json:"is_favorite,omitempty" yaml:"is_favorite,omitempty"`
	Time        string        `json:"time,omitempty" yaml:"time,omitempty"`
}

// Result represents the result of an import operation
type Result struct {
	Groups   int      `json:"groups"`
	Members  int      `json:"members"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Parse decodes a JSON or YAML document. Input starting with '{' is JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse import document: %w", err)
		}
		return &doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse import document: %w", err)
	}
	return &doc, nil
}

// Import creates missing groups and members and adds every card in doc.
// Existing groups and members are reused by name. Bad cards are skipped and
// reported in the result; only database failures on groups or members abort.
func Import(ctx context.Context, db *gorm.DB, doc *Document) (Result, error) {
	result := Result{Errors: []string{}}
	tx := db.WithContext(ctx)

	for gi, g := range doc.Groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			result.Errors = append(result.Errors, "group "+strconv.Itoa(gi)+": name is required")
			continue
		}

		group, created, err := findOrCreateGroup(tx, name)
		if err != nil {
			return result, err
		}
		if created {
			result.Groups++
		}

		for mi, m := range g.Members {
			memberName := strings.TrimSpace(m.Name)
			if memberName == "" {
				result.Errors = append(result.Errors, fmt.Sprintf("%s member %d: name is required", name, mi))
				continue
			}

			member, created, err := findOrCreateMember(tx, group.ID, memberName)
			if err != nil {
				return result, err
			}
			if created {
				result.Members++
			}

			for ci, card := range m.Cards {
				where := fmt.Sprintf("%s/%s card %d", name, memberName, ci)
				item, err := itemFromEntry(card, &member.ID)
				if err != nil {
					result.Errors = append(result.Errors, where+": "+err.Error())
					result.Skipped++
					continue
				}
				if err := tx.Create(&item).Error; err != nil {
					result.Errors = append(result.Errors, where+": "+err.Error())
					result.Skipped++
					continue
				}
				result.Imported++
			}
		}
	}

	for ci, card := range doc.Unassigned {
		where := "unassigned card " + strconv.Itoa(ci)
		item, err := itemFromEntry(card, nil)
		if err != nil {
			result.Errors = append(result.Errors, where+": "+err.Error())
			result.Skipped++
			continue
		}
		if err := tx.Create(&item).Error; err != nil {
			result.Errors = append(result.Errors, where+": "+err.Error())
			result.Skipped++
			continue
		}
		result.Imported++
	}

	return result, nil
}

func findOrCreateGroup(tx *gorm.DB, name string) (models.Group, bool, error) {
	var group models.Group
	err := tx.Where("name = ?", name).First(&group).Error
	if err == nil {
		return group, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return group, false, fmt.Errorf("failed to look up group %s: %w", name, err)
	}

	group = models.Group{Name: name}
	if err := tx.Create(&group).Error; err != nil {
		return group, false, fmt.Errorf("failed to create group %s: %w", name, err)
	}
	return group, true, nil
}

func findOrCreateMember(tx *gorm.DB, groupID uint, name string) (models.Member, bool, error) {
	var member models.Member
	err := tx.Where("group_id = ? AND name = ?", groupID, name).First(&member).Error
	if err == nil {
		return member, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return member, false, fmt.Errorf("failed to look up member %s: %w", name, err)
	}

	member = models.Member{GroupID: groupID, Name: name}
	if err := tx.Create(&member).Error; err != nil {
		return member, false, fmt.Errorf("failed to create member %s: %w", name, err)
	}
	return member, true, nil
}

func itemFromEntry(card CardEntry, memberID *uint) (models.CollectionItem, error) {
	status := card.Status
	if status == "" {
		status = models.StatusWishlist
	}
	if !status.Valid() {
		return models.CollectionItem{}, fmt.Errorf("invalid status %q", card.Status)
	}

	item := models.CollectionItem{
		Status:     status,
		MemberID:   memberID,
		IsFavorite: card.IsFavorite,
	}
	if card.ImageURL != "" {
		img := card.ImageURL
		item.ImageURL = &img
	}
	if card.Description != "" {
		desc := card.Description
		item.Description = &desc
	}
	if card.Time != "" {
		parsed, err := time.Parse(time.RFC3339, card.Time)
		if err != nil {
			return models.CollectionItem{}, fmt.Errorf("invalid time format")
		}
		item.CreatedAt = parsed
	}
	return item, nil
}

// Export builds a document holding every group, member and card. Cards
// without a member, or whose member no longer exists, go to Unassigned.
// Cards are listed oldest first so a re-import keeps their order.
func Export(ctx context.Context, db *gorm.DB) (*Document, error) {
	var groups []models.Group
	err := db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("members.id ASC") }).
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}

	var items []models.CollectionItem
	err = db.WithContext(ctx).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}

	known := make(map[uint]bool)
	for _, g := range groups {
		for _, m := range g.Members {
			known[m.ID] = true
		}
	}

	doc := &Document{Groups: make([]GroupEntry, 0, len(groups))}
	byMember := make(map[uint][]CardEntry)
	for _, item := range items {
		entry := CardEntry{
			Status:     item.Status,
			IsFavorite: item.IsFavorite,
			Time:       item.CreatedAt.UTC().Format(time.RFC3339),
		}
		if item.ImageURL != nil {
			entry.ImageURL = *item.ImageURL
		}
		if item.Description != nil {
			entry.Description = *item.Description
		}
		if item.MemberID == nil || !known[*item.MemberID] {
			doc.Unassigned = append(doc.Unassigned, entry)
			continue
		}
		byMember[*item.MemberID] = append(byMember[*item.MemberID], entry)
	}

	for _, g := range groups {
		entry := GroupEntry{Name: g.Name, Members: make([]MemberEntry, 0, len(g.Members))}
		for _, m := range g.Members {
			entry.Members = append(entry.Members, MemberEntry{Name: m.Name, Cards: byMember[m.ID]})
		}
		doc.Groups = append(doc.Groups, entry)
	}
	return doc, nil
}
