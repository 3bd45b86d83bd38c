package catalog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

// CardResponse represents a card in API responses
type CardResponse struct {
	ID          uint          `json:"id"`
	Status      models.Status `json:"status"`
	Img         *string       `json:"img"`
	Description *string       `json:"description"`
	Member      string        `json:"member,omitempty"`
	Group       string        `json:"group,omitempty"`
	IsFavorite  bool          `json:"is_favorite"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ListCards returns the cards for a stage, optionally narrowed to one member.
// It uses the same queries as the page: newest first for a whole stage,
// photos first for a single member.
func (h *Handler) ListCards(c *gin.Context) {
	status := models.Status(c.DefaultQuery("status", string(models.StatusWishlist)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	query := backend.CardQuery{
		Status: status,
		Order:  backend.OrderNewestFirst,
		Limit:  backend.DefaultCardLimit,
	}

	group, member := c.Query("group"), c.Query("member")
	if member != "" && group == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "member requires group"})
		return
	}
	if group != "" && member != "" {
		id, found, err := h.store.FindMemberID(c.Request.Context(), group, member)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cards"})
			return
		}
		if !found {
			c.JSON(http.StatusOK, []CardResponse{})
			return
		}
		query.MemberID = &id
		query.Order = backend.OrderImagesFirst
		query.Limit = backend.MemberCardLimit
	}

	items, err := h.store.ListCards(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cards"})
		return
	}

	cards := make([]CardResponse, 0, len(items))
	for _, item := range items {
		card := CardResponse{
			ID:          item.ID,
			Status:      item.Status,
			Img:         item.ImageURL,
			Description: item.Description,
			IsFavorite:  item.IsFavorite,
			CreatedAt:   item.CreatedAt,
		}
		if item.Member != nil {
			card.Member = item.Member.Name
			if item.Member.Group != nil {
				card.Group = item.Member.Group.Name
			}
		}
		// a group without a member narrows the stage client side, as the page does
		if group != "" && card.Group != group {
			continue
		}
		cards = append(cards, card)
	}

	c.JSON(http.StatusOK, cards)
}
