// Package catalog serves read-only JSON views of groups, members and cards.
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/mikepea/photocards/pkg/photocards/backend/gormstore"
	"github.com/mikepea/photocards/pkg/photocards/models"
	"gorm.io/gorm"
)

// Handler handles catalog requests
type Handler struct {
	db    *gorm.DB
	store *gormstore.Store
}

// NewHandler creates a new catalog handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, store: gormstore.New(db)}
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	MemberCount int    `json:"member_count"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// ListGroups returns every group ordered by name
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.store.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	resp := make([]GroupResponse, len(groups))
	for i, g := range groups {
		resp[i] = GroupResponse{
			ID:          g.ID,
			Name:        g.Name,
			Slug:        slug.Make(g.Name),
			MemberCount: len(g.Members),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListMembers returns the members of one group. The group is addressed by
// numeric ID or by the slug from ListGroups.
func (h *Handler) ListMembers(c *gin.Context) {
	group, err := h.findGroup(c, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(group.Members))
	for i, m := range group.Members {
		members[i] = MemberResponse{ID: m.ID, Name: m.Name, Group: group.Name}
	}

	c.JSON(http.StatusOK, members)
}

func (h *Handler) findGroup(c *gin.Context, ref string) (models.Group, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		var group models.Group
		err := h.db.WithContext(c.Request.Context()).
			Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("members.id ASC") }).
			First(&group, id).Error
		return group, err
	}

	groups, err := h.store.ListGroups(c.Request.Context())
	if err != nil {
		return models.Group{}, err
	}
	for _, g := range groups {
		if slug.Make(g.Name) == ref {
			return g, nil
		}
	}
	return models.Group{}, gorm.ErrRecordNotFound
}

// RegisterRoutes registers catalog routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups", h.ListGroups)
	rg.GET("/groups/:id/members", h.ListMembers)
	rg.GET("/cards", h.ListCards)
}
