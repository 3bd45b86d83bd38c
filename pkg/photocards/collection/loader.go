package collection

import (
	"context"

	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

// LoadGroups replaces the catalog used by the filter dropdowns.
func (c *Controller) LoadGroups(ctx context.Context) error {
	var groups []models.Group
	err := c.observe("list_groups", func() error {
		var err error
		groups, err = c.store.ListGroups(ctx)
		return err
	})
	if err != nil {
		c.log.Error("Failed to load groups", "error", err)
		return err
	}

	catalog := catalogFromGroups(groups)
	c.update(func(s *State) { s.Catalog = catalog })
	return nil
}

// LoadCards reloads the card list for the active tab and filters.
// With both a group and member selected, only that member's cards are
// fetched, photos first. Otherwise the whole tab is fetched newest first.
//
// On failure the previous list is kept. A response is dropped if another
// load started after this one.
func (c *Controller) LoadCards(ctx context.Context) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	tab, group, member := c.state.Tab, c.state.Group, c.state.Member
	c.mu.Unlock()

	query := backend.CardQuery{
		Status: tab,
		Order:  backend.OrderNewestFirst,
		Limit:  backend.DefaultCardLimit,
	}

	if group != "" && member != "" {
		var (
			memberID uint
			found    bool
		)
		err := c.observe("find_member", func() error {
			var err error
			memberID, found, err = c.store.FindMemberID(ctx, group, member)
			return err
		})
		if err != nil {
			c.log.Error("Failed to resolve member filter", "group", group, "member", member, "error", err)
			return err
		}
		if !found {
			c.replaceCards(seq, nil)
			return nil
		}
		query.MemberID = &memberID
		query.Order = backend.OrderImagesFirst
		query.Limit = backend.MemberCardLimit
	}

	var items []models.CollectionItem
	err := c.observe("list_cards", func() error {
		var err error
		items, err = c.store.ListCards(ctx, query)
		return err
	})
	if err != nil {
		c.log.Error("Failed to load cards", "status", tab, "error", err)
		return err
	}

	cards := make([]Card, len(items))
	for i, item := range items {
		cards[i] = cardFromItem(item)
	}
	c.replaceCards(seq, cards)
	return nil
}

func (c *Controller) replaceCards(seq uint64, cards []Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		c.log.Debug("Dropping stale card load", "seq", seq, "latest", c.loadSeq)
		return
	}
	c.state.Cards = cards
}
