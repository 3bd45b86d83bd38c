// Package backend defines the persistence and object-storage collaborators
// the collection controller talks to. Implementations live in the gormstore
// and objectstore subpackages; tests substitute in-memory fakes.
package backend

import (
	"context"
	"io"

	"github.com/mikepea/photocards/pkg/photocards/models"
)

// Order selects how ListCards sorts its rows.
type Order int

const (
	// OrderNewestFirst sorts by created_at descending.
	OrderNewestFirst Order = iota
	// OrderImagesFirst puts rows with an image before placeholders,
	// then sorts by created_at ascending.
	OrderImagesFirst
)

// Row caps used by the collection view.
const (
	DefaultCardLimit = 1000
	MemberCardLimit  = 5000
)

// CardQuery filters collection rows by equality.
type CardQuery struct {
	Status   models.Status
	MemberID *uint
	Order    Order
	Limit    int
}

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Store is the table-query side of the backend.
type Store interface {
	// ListGroups returns every group with its members preloaded, ordered by name.
	ListGroups(ctx context.Context) ([]models.Group, error)

	// ListCards returns collection rows with Member and Member.Group joined.
	ListCards(ctx context.Context, q CardQuery) ([]models.CollectionItem, error)

	// FindMemberID resolves a member by name within a named group.
	// A missing member is reported with found == false and a nil error.
	FindMemberID(ctx context.Context, groupName, memberName string) (id uint, found bool, err error)

	// UpdateCard partially updates one collection row.
	// Returns ErrNotFound if no row has the given id.
	UpdateCard(ctx context.Context, id uint, fields Fields) error
}

// ObjectStore is the file-storage side of the backend.
type ObjectStore interface {
	// Upload stores the blob under key.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error

	// PublicURL resolves the public retrieval URL for key.
	PublicURL(key string) string

	// KeyFromURL recovers the key from a URL produced by PublicURL.
	KeyFromURL(url string) (key string, ok bool)

	// Remove deletes the named blobs.
	Remove(ctx context.Context, keys ...string) error
}
