package collection

import (
	"context"
	"fmt"
	"io"

	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

// UploadPhoto stores body as the photo of card id. Only one upload runs at
// a time; a second one is refused with ErrBusy.
func (c *Controller) UploadPhoto(ctx context.Context, id uint, filename, contentType string, body io.Reader) error {
	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		c.notify("Please wait for the current upload to finish.")
		return ErrBusy
	}
	c.state.Busy = true
	c.mu.Unlock()
	defer c.update(func(s *State) { s.Busy = false })

	key := StorageKey(c.now(), filename)

	err := c.observe("upload_object", func() error {
		return c.objects.Upload(ctx, key, body, contentType)
	})
	if err != nil {
		return c.fail("upload_photo", "Failed to save the photo.", err, "card_id", id, "key", key)
	}

	url := c.objects.PublicURL(key)
	err = c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, id, backend.Fields{"image_url": url})
	})
	if err != nil {
		return c.fail("upload_photo", "Failed to save the photo.", err, "card_id", id, "key", key)
	}

	c.update(func(s *State) {
		s.applyImage(id, url)
		s.Notice = "Photo saved!"
	})
	c.log.Info("Photo uploaded", "card_id", id, "key", key)
	return nil
}

// DeletePhoto removes the photo of the card open in the editor, turning it
// back into a placeholder. Removing the stored object is best effort; the
// row is cleared even when that fails.
func (c *Controller) DeletePhoto(ctx context.Context, confirm Confirm) error {
	card, _, err := c.editing()
	if err != nil {
		return err
	}
	if card.Placeholder() {
		return ErrNoImage
	}
	if !confirm("Are you sure you want to remove this photo?") {
		return nil
	}

	if key, ok := c.objects.KeyFromURL(card.Img); ok {
		err := c.observe("remove_object", func() error {
			return c.objects.Remove(ctx, key)
		})
		if err != nil {
			c.log.Warn("Failed to remove stored photo", "card_id", card.ID, "key", key, "error", err)
		}
	}

	err = c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, card.ID, backend.Fields{"image_url": nil})
	})
	if err != nil {
		return c.fail("delete_photo", "Failed to remove the photo.", err, "card_id", card.ID)
	}

	c.update(func(s *State) {
		s.applyImage(card.ID, "")
		if s.editorOn(card.ID) {
			s.CloseEditor()
		}
		s.Notice = "Photo removed!"
	})
	return nil
}

// SaveDescription writes the editor's description buffer to the open card.
func (c *Controller) SaveDescription(ctx context.Context) error {
	card, draft, err := c.editing()
	if err != nil {
		return err
	}

	err = c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, card.ID, backend.Fields{"description": draft.Description})
	})
	if err != nil {
		return c.fail("save_description", "Failed to save the description.", err, "card_id", card.ID)
	}

	c.update(func(s *State) { s.applyDescription(card.ID, draft.Description) })
	return nil
}

// MoveStatus moves the open card to the draft stage. Choosing the card's
// current stage, or none, does nothing.
func (c *Controller) MoveStatus(ctx context.Context, confirm Confirm) error {
	card, draft, err := c.editing()
	if err != nil {
		return err
	}
	target := draft.MoveTo
	if target == "" || target == card.Status {
		return nil
	}
	if !target.Valid() {
		return ErrInvalidStatus
	}
	if !confirm(fmt.Sprintf("Move this card to %q?", target.Label())) {
		return nil
	}

	err = c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, card.ID, backend.Fields{"status": target})
	})
	if err != nil {
		return c.fail("move_status", "Failed to move the card.", err, "card_id", card.ID, "status", target)
	}

	c.update(func(s *State) {
		s.applyStatus(card.ID, target)
		if s.editorOn(card.ID) {
			s.CloseEditor()
		}
	})
	c.log.Info("Card moved", "card_id", card.ID, "from", card.Status, "to", target)
	return nil
}

// MoveMember reassigns the open card to the draft group and member.
func (c *Controller) MoveMember(ctx context.Context, confirm Confirm) error {
	card, draft, err := c.editing()
	if err != nil {
		return err
	}
	group, member := draft.MoveGroup, draft.MoveMember
	if group == "" || member == "" {
		c.notify("Choose a group and a member first.")
		return ErrNoDestination
	}

	var (
		memberID uint
		found    bool
	)
	err = c.observe("find_member", func() error {
		var err error
		memberID, found, err = c.store.FindMemberID(ctx, group, member)
		return err
	})
	if err != nil {
		return c.fail("move_member", "Failed to move the card.", err, "card_id", card.ID)
	}
	if !found {
		c.notify(fmt.Sprintf("Member %s was not found in %s.", member, group))
		return ErrMemberNotFound
	}

	if !confirm(fmt.Sprintf("Move this card to %s (%s)?", member, group)) {
		return nil
	}

	err = c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, card.ID, backend.Fields{"member_id": memberID})
	})
	if err != nil {
		return c.fail("move_member", "Failed to move the card.", err, "card_id", card.ID, "member_id", memberID)
	}

	c.update(func(s *State) {
		s.applyMember(card.ID, memberID, member, group)
		if s.editorOn(card.ID) {
			s.CloseEditor()
		}
	})
	c.log.Info("Card reassigned", "card_id", card.ID, "group", group, "member", member)
	return nil
}

// ToggleFavorite flips the favorite flag of card id.
func (c *Controller) ToggleFavorite(ctx context.Context, id uint) error {
	var (
		current bool
		ok      bool
	)
	c.update(func(s *State) {
		if card, found := s.find(id); found {
			current, ok = card.IsFavorite, true
		} else if s.editorOn(id) {
			current, ok = s.Editing.IsFavorite, true
		}
	})
	if !ok {
		return ErrCardNotFound
	}
	next := !current

	err := c.observe("update_card", func() error {
		return c.store.UpdateCard(ctx, id, backend.Fields{"is_favorite": next})
	})
	if err != nil {
		return c.fail("toggle_favorite", "Failed to update favorite.", err, "card_id", id)
	}

	c.update(func(s *State) { s.applyFavorite(id, next) })
	return nil
}

// ToggleEditorFavorite flips the favorite flag of the open card.
func (c *Controller) ToggleEditorFavorite(ctx context.Context) error {
	card, _, err := c.editing()
	if err != nil {
		return err
	}
	return c.ToggleFavorite(ctx, card.ID)
}

// Stages lists the stages a card can be moved to, in display order.
func Stages() []models.Status {
	return append([]models.Status(nil), models.Statuses...)
}
