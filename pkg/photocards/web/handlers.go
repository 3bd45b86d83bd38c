// Package web serves the photocard browser as server-rendered HTML.
// Every action is a form POST that drives the collection controller and
// redirects back to the page.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/photocards/pkg/photocards/collection"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultMaxUploadBytes caps photo uploads
const DefaultMaxUploadBytes = 20 << 20

// Handler handles page and form requests
type Handler struct {
	ctl       *collection.Controller
	maxUpload int64
}

// NewHandler creates a new web handler
func NewHandler(ctl *collection.Controller) *Handler {
	return &Handler{ctl: ctl, maxUpload: DefaultMaxUploadBytes}
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"label": func(s models.Status) string { return s.Label() },
	}).ParseFS(templatesFS, "templates/*.html")
}

type tabOption struct {
	Status models.Status
	Label  string
	Active bool
}

type pageData struct {
	State   collection.State
	Visible []collection.Card
	Tabs    []tabOption
	Stages  []models.Status
	Notice  string
}

// Index renders the page for the current state
func (h *Handler) Index(c *gin.Context) {
	notice := h.ctl.TakeNotice()
	state := h.ctl.Snapshot()

	tabs := make([]tabOption, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		tabs = append(tabs, tabOption{Status: s, Label: s.Label(), Active: s == state.Tab})
	}

	// a pointer keeps State addressable for its pointer-receiver helpers
	c.HTML(http.StatusOK, "index.html", &pageData{
		State:   state,
		Visible: state.Visible(),
		Tabs:    tabs,
		Stages:  collection.Stages(),
		Notice:  notice,
	})
}

// SelectTab switches the active stage
func (h *Handler) SelectTab(c *gin.Context) {
	tab := models.Status(c.PostForm("tab"))
	h.done(c, h.ctl.SelectTab(c.Request.Context(), tab))
}

// SelectFilters applies the group/member dropdowns. A changed group always
// wins and resets the member.
func (h *Handler) SelectFilters(c *gin.Context) {
	group := c.PostForm("group")
	member := c.PostForm("member")

	if group != h.ctl.Snapshot().Group {
		h.done(c, h.ctl.SelectGroup(c.Request.Context(), group))
		return
	}
	h.done(c, h.ctl.SelectMember(c.Request.Context(), member))
}

// UploadPhoto accepts a multipart "file" for a placeholder card
func (h *Handler) UploadPhoto(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.ctl.Notify(fmt.Sprintf("That photo is too large (limit %d MB).", h.maxUpload>>20))
		slog.Warn("Upload rejected", "card_id", id, "limit_bytes", tooLarge.Limit)
		h.done(c, nil)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A photo file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	err = h.ctl.UploadPhoto(c.Request.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	h.done(c, err)
}

// ToggleFavorite flips a card's favorite flag from the grid
func (h *Handler) ToggleFavorite(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	h.done(c, h.ctl.ToggleFavorite(c.Request.Context(), id))
}

// OpenEditor opens the edit modal on a card
func (h *Handler) OpenEditor(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	h.ctl.OpenEditor(id)
	h.done(c, nil)
}

// CloseEditor closes the edit modal without saving
func (h *Handler) CloseEditor(c *gin.Context) {
	h.ctl.CloseEditor()
	h.done(c, nil)
}

// SaveDescription saves the submitted description
func (h *Handler) SaveDescription(c *gin.Context) {
	h.ctl.SetDraftDescription(c.PostForm("description"))
	h.done(c, h.ctl.SaveDescription(c.Request.Context()))
}

// DeletePhoto removes the open card's photo
func (h *Handler) DeletePhoto(c *gin.Context) {
	h.done(c, h.ctl.DeletePhoto(c.Request.Context(), formConfirm(c)))
}

// MoveStatus moves the open card to the submitted stage
func (h *Handler) MoveStatus(c *gin.Context) {
	status := models.Status(c.PostForm("status"))
	if status != "" && !status.Valid() {
		h.done(c, collection.ErrInvalidStatus)
		return
	}
	h.ctl.SetMoveTarget(status)
	h.done(c, h.ctl.MoveStatus(c.Request.Context(), formConfirm(c)))
}

// SelectDestination picks the destination group for a member move
func (h *Handler) SelectDestination(c *gin.Context) {
	h.ctl.SetMoveGroup(c.PostForm("group"))
	h.done(c, nil)
}

// MoveMember reassigns the open card to the submitted member
func (h *Handler) MoveMember(c *gin.Context) {
	if group := c.PostForm("group"); group != "" && group != h.ctl.Snapshot().Draft.MoveGroup {
		h.ctl.SetMoveGroup(group)
	}
	h.ctl.SetMoveMember(c.PostForm("member"))
	h.done(c, h.ctl.MoveMember(c.Request.Context(), formConfirm(c)))
}

// ToggleEditorFavorite flips the open card's favorite flag
func (h *Handler) ToggleEditorFavorite(c *gin.Context) {
	h.done(c, h.ctl.ToggleEditorFavorite(c.Request.Context()))
}

// RegisterRoutes registers page routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.POST("/tab", h.SelectTab)
	r.POST("/filters", h.SelectFilters)
	r.POST("/cards/:id/photo", h.UploadPhoto)
	r.POST("/cards/:id/favorite", h.ToggleFavorite)
	r.POST("/cards/:id/edit", h.OpenEditor)
	r.POST("/editor/close", h.CloseEditor)
	r.POST("/editor/description", h.SaveDescription)
	r.POST("/editor/photo/delete", h.DeletePhoto)
	r.POST("/editor/status", h.MoveStatus)
	r.POST("/editor/destination", h.SelectDestination)
	r.POST("/editor/member", h.MoveMember)
	r.POST("/editor/favorite", h.ToggleEditorFavorite)
}

// done redirects back to the page. Failures have already been turned into
// a notice by the controller; only malformed input is rejected here.
func (h *Handler) done(c *gin.Context, err error) {
	if errors.Is(err, collection.ErrInvalidStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if err != nil {
		slog.Debug("Action did not complete", "path", c.Request.URL.Path, "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// formConfirm answers the controller's confirmation with the browser's:
// the page's confirm() dialog sets confirmed=true before submitting.
func formConfirm(c *gin.Context) collection.Confirm {
	confirmed := c.PostForm("confirmed") == "true"
	return func(string) bool { return confirmed }
}

func cardID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID"})
		return 0, false
	}
	return uint(id), true
}
