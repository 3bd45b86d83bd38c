// Package collection holds the photocard browser's application state and
// the actions that load and mutate it against the backend.
//
// Every mutation follows the same contract: write to the backend first,
// and only on success apply the equivalent change to the local state. On
// failure the state is left untouched and a notice is raised.
package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
)

var (
	ErrBusy           = errors.New("an upload is already in progress")
	ErrNoEditor       = errors.New("no card is open in the editor")
	ErrNoImage        = errors.New("card has no photo")
	ErrCardNotFound   = errors.New("card not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrNoDestination  = errors.New("destination group and member are required")
	ErrInvalidStatus  = errors.New("invalid status")
)

// Confirm asks the user a yes/no question.
type Confirm func(message string) bool

// Recorder observes backend operations, e.g. for metrics.
type Recorder interface {
	Observe(op string, took time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, time.Duration, error) {}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for storage keys.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRecorder installs a Recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the State. The mutex is never held across backend calls.
type Controller struct {
	store    backend.Store
	objects  backend.ObjectStore
	now      func() time.Time
	recorder Recorder
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	loadSeq uint64
}

// New creates a controller in the initial state.
func New(store backend.Store, objects backend.ObjectStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		objects:  objects,
		now:      time.Now,
		recorder: nopRecorder{},
		log:      slog.Default(),
		state:    NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state for rendering.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// TakeNotice returns and clears the pending notice.
func (c *Controller) TakeNotice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	notice := c.state.Notice
	c.state.Notice = ""
	return notice
}

// update applies fn to the state under the lock.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Notify raises a notice for failures detected outside the controller,
// such as a rejected request body.
func (c *Controller) Notify(notice string) {
	c.notify(notice)
}

func (c *Controller) notify(notice string) {
	c.update(func(s *State) { s.Notice = notice })
}

// fail logs err and raises notice.
func (c *Controller) fail(op, notice string, err error, attrs ...any) error {
	c.log.Error(notice, append([]any{"op", op, "error", err}, attrs...)...)
	c.notify(notice)
	return err
}

// observe times a backend call.
func (c *Controller) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.recorder.Observe(op, time.Since(start), err)
	return err
}

// Init loads the group catalog and the cards of the initial tab.
func (c *Controller) Init(ctx context.Context) error {
	groupsErr := c.LoadGroups(ctx)
	cardsErr := c.LoadCards(ctx)
	return errors.Join(groupsErr, cardsErr)
}

// SelectTab switches stage and reloads cards.
func (c *Controller) SelectTab(ctx context.Context, tab models.Status) error {
	if !tab.Valid() {
		return ErrInvalidStatus
	}
	c.update(func(s *State) { s.SelectTab(tab) })
	return c.LoadCards(ctx)
}

// SelectGroup sets the group filter, clears the member filter and reloads.
func (c *Controller) SelectGroup(ctx context.Context, group string) error {
	c.update(func(s *State) { s.SelectGroup(group) })
	return c.LoadCards(ctx)
}

// SelectMember sets the member filter and reloads.
func (c *Controller) SelectMember(ctx context.Context, member string) error {
	c.update(func(s *State) { s.SelectMember(member) })
	return c.LoadCards(ctx)
}

// OpenEditor opens the modal on a card with a photo.
func (c *Controller) OpenEditor(id uint) bool {
	var opened bool
	c.update(func(s *State) { opened = s.OpenEditor(id) })
	return opened
}

// CloseEditor closes the modal, discarding unsaved edits.
func (c *Controller) CloseEditor() {
	c.update(func(s *State) { s.CloseEditor() })
}

// SetDraftDescription updates the description buffer.
func (c *Controller) SetDraftDescription(text string) {
	c.update(func(s *State) { s.SetDraftDescription(text) })
}

// SetMoveTarget updates the destination stage.
func (c *Controller) SetMoveTarget(status models.Status) {
	c.update(func(s *State) { s.SetMoveTarget(status) })
}

// SetMoveGroup updates the destination group.
func (c *Controller) SetMoveGroup(group string) {
	c.update(func(s *State) { s.SetMoveGroup(group) })
}

// SetMoveMember updates the destination member.
func (c *Controller) SetMoveMember(member string) {
	c.update(func(s *State) { s.SetMoveMember(member) })
}

// editing returns a copy of the open card and the draft.
func (c *Controller) editing() (Card, Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Editing == nil {
		return Card{}, Draft{}, ErrNoEditor
	}
	return *c.state.Editing, c.state.Draft, nil
}
