package collection

import (
	"time"

	"github.com/mikepea/photocards/pkg/photocards/models"
)

// Card is the denormalised view of a collection row. Member and Group are
// resolved from MemberID when the row is loaded and are only ever changed
// together with it.
type Card struct {
	ID          uint
	Status      models.Status
	Img         string
	Description string
	MemberID    *uint
	Member      string
	Group       string
	IsFavorite  bool
	CreatedAt   time.Time
}

// Placeholder reports whether the card has no photo yet.
func (c Card) Placeholder() bool {
	return c.Img == ""
}

func cardFromItem(item models.CollectionItem) Card {
	card := Card{
		ID:         item.ID,
		Status:     item.Status,
		MemberID:   item.MemberID,
		IsFavorite: item.IsFavorite,
		CreatedAt:  item.CreatedAt,
	}
	if item.ImageURL != nil {
		card.Img = *item.ImageURL
	}
	if item.Description != nil {
		card.Description = *item.Description
	}
	if item.Member != nil {
		card.Member = item.Member.Name
		if item.Member.Group != nil {
			card.Group = item.Member.Group.Name
		}
	}
	return card
}

// Catalog maps group names to their member names, both in load order.
type Catalog struct {
	Groups  []string
	Members map[string][]string
}

func catalogFromGroups(groups []models.Group) Catalog {
	cat := Catalog{Members: make(map[string][]string, len(groups))}
	for _, g := range groups {
		cat.Groups = append(cat.Groups, g.Name)
		names := make([]string, len(g.Members))
		for i, m := range g.Members {
			names[i] = m.Name
		}
		cat.Members[g.Name] = names
	}
	return cat
}

// Draft is the editor's scratch buffer. Nothing in it is persisted until
// the matching save or move action succeeds.
type Draft struct {
	Description string
	MoveTo      models.Status
	MoveGroup   string
	MoveMember  string
}

// State is everything the page renders. It is mutated only through the
// transition methods below.
type State struct {
	Tab     models.Status
	Group   string
	Member  string
	Cards   []Card
	Catalog Catalog

	// Busy is set while an upload is in flight.
	Busy bool

	// Editing is the card open in the edit modal, nil when closed.
	Editing *Card
	Draft   Draft

	// Notice is the pending user notification, if any.
	Notice string
}

// NewState returns the initial state: wishlist tab, no filters.
func NewState() State {
	return State{
		Tab:     models.StatusWishlist,
		Catalog: Catalog{Members: map[string][]string{}},
	}
}

// Matches is the grid filter predicate.
func Matches(card Card, tab models.Status, group, member string) bool {
	if card.Status != tab {
		return false
	}
	if group != "" && card.Group != group {
		return false
	}
	if member != "" && card.Member != member {
		return false
	}
	return true
}

// Visible returns the cards the grid shows under the current tab and filters.
func (s *State) Visible() []Card {
	visible := make([]Card, 0, len(s.Cards))
	for _, card := range s.Cards {
		if Matches(card, s.Tab, s.Group, s.Member) {
			visible = append(visible, card)
		}
	}
	return visible
}

// MemberOptions lists the members of the selected group.
func (s *State) MemberOptions() []string {
	if s.Group == "" {
		return nil
	}
	return s.Catalog.Members[s.Group]
}

// MemberSelectorEnabled reports whether a member filter may be chosen.
func (s *State) MemberSelectorEnabled() bool {
	return s.Group != ""
}

// DestinationMembers lists the members of the editor's destination group.
func (s *State) DestinationMembers() []string {
	if s.Draft.MoveGroup == "" {
		return nil
	}
	return s.Catalog.Members[s.Draft.MoveGroup]
}

// SelectTab switches the active stage.
func (s *State) SelectTab(tab models.Status) {
	s.Tab = tab
}

// SelectGroup sets the group filter and resets the member filter.
func (s *State) SelectGroup(group string) {
	s.Group = group
	s.Member = ""
}

// SelectMember sets the member filter. It is ignored without a group.
func (s *State) SelectMember(member string) {
	if s.Group == "" {
		return
	}
	s.Member = member
}

// OpenEditor opens the modal on card id. Placeholders cannot be opened.
func (s *State) OpenEditor(id uint) bool {
	card, ok := s.find(id)
	if !ok || card.Placeholder() {
		return false
	}
	editing := *card
	s.Editing = &editing
	s.Draft = Draft{Description: card.Description}
	return true
}

// CloseEditor closes the modal and discards the draft.
func (s *State) CloseEditor() {
	s.Editing = nil
	s.Draft = Draft{}
}

// SetDraftDescription replaces the editor's description buffer.
func (s *State) SetDraftDescription(text string) {
	if s.Editing == nil {
		return
	}
	s.Draft.Description = text
}

// SetMoveTarget chooses the stage the editor would move the card to.
func (s *State) SetMoveTarget(status models.Status) {
	if s.Editing == nil {
		return
	}
	s.Draft.MoveTo = status
}

// SetMoveGroup chooses the destination group and resets the destination member.
func (s *State) SetMoveGroup(group string) {
	if s.Editing == nil {
		return
	}
	s.Draft.MoveGroup = group
	s.Draft.MoveMember = ""
}

// SetMoveMember chooses the destination member within the destination group.
func (s *State) SetMoveMember(member string) {
	if s.Editing == nil || s.Draft.MoveGroup == "" {
		return
	}
	s.Draft.MoveMember = member
}

func (s *State) find(id uint) (*Card, bool) {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return &s.Cards[i], true
		}
	}
	return nil, false
}

// editorOn reports whether the modal is open on card id.
func (s *State) editorOn(id uint) bool {
	return s.Editing != nil && s.Editing.ID == id
}

func (s *State) applyImage(id uint, url string) {
	if card, ok := s.find(id); ok {
		card.Img = url
	}
	if s.editorOn(id) {
		s.Editing.Img = url
	}
}

func (s *State) applyDescription(id uint, text string) {
	if card, ok := s.find(id); ok {
		card.Description = text
	}
	if s.editorOn(id) {
		s.Editing.Description = text
	}
}

func (s *State) applyFavorite(id uint, favorite bool) {
	if card, ok := s.find(id); ok {
		card.IsFavorite = favorite
	}
	if s.editorOn(id) {
		s.Editing.IsFavorite = favorite
	}
}

func (s *State) applyMember(id, memberID uint, member, group string) {
	if card, ok := s.find(id); ok {
		card.MemberID = &memberID
		card.Member = member
		card.Group = group
	}
}

// applyStatus records the new stage and drops the card from the list when
// it no longer belongs to the active tab.
func (s *State) applyStatus(id uint, status models.Status) {
	card, ok := s.find(id)
	if !ok {
		return
	}
	card.Status = status
	if status == s.Tab {
		return
	}
	kept := s.Cards[:0]
	for _, c := range s.Cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.Cards = kept
}

// clone returns a copy that shares no mutable memory with s.
func (s *State) clone() State {
	out := *s
	out.Cards = append([]Card(nil), s.Cards...)
	for i := range out.Cards {
		if id := out.Cards[i].MemberID; id != nil {
			v := *id
			out.Cards[i].MemberID = &v
		}
	}
	if s.Editing != nil {
		editing := *s.Editing
		out.Editing = &editing
	}
	out.Catalog.Groups = append([]string(nil), s.Catalog.Groups...)
	out.Catalog.Members = make(map[string][]string, len(s.Catalog.Members))
	for g, members := range s.Catalog.Members {
		out.Catalog.Members[g] = append([]string(nil), members...)
	}
	return out
}
