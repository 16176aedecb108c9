// Package app is the effect layer: it pairs every state transition
// with its durable store write. Commands write to the store first and
// dispatch the reducer action only once the write succeeded, so the
// in-memory state never shows data the store refused.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardfolio/gocard/internal/store"
	"github.com/cardfolio/gocard/pkg/state"
)

// ErrEmptyField rejects blank folder names and card faces before they
// reach the store.
var ErrEmptyField = errors.New("app: field must not be empty")

// App owns a Storer and the reduced application state. Safe for
// interleaved WASM callbacks; each command runs under one lock so a
// logical operation's read-modify-write never interleaves with
// another on the same record.
type App struct {
	mu    sync.Mutex
	store store.Storer
	state state.State
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Option configures an App.
type Option func(*App)

// WithLogger attaches a structured logger. Nop by default.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithClock overrides the timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithIDGenerator overrides the id source for tests.
func WithIDGenerator(newID func() string) Option {
	return func(a *App) { a.newID = newID }
}

// New wires an App around an already-open store. The store handle is
// injected, never held in package state, so its lifecycle stays
// explicit and testable.
func New(st store.Storer, opts ...Option) *App {
	a := &App{
		store: st,
		state: state.Initial(),
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store exposes the underlying handle for collaborators that read or
// write the store directly (import/export, search indexing).
func (a *App) Store() store.Storer { return a.store }

// State returns a snapshot of the current application state.
func (a *App) State() state.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) dispatch(act state.Action) {
	a.state = state.Reduce(a.state, act)
}

// =============================================================================
// Folder commands
// =============================================================================

// CreateFolder creates a named folder with a fresh id. An id collision
// (which the generator should make impossible) is retried once with a
// new id rather than surfaced.
func (a *App) CreateFolder(name string) (*store.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name: %w", ErrEmptyField)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f := &store.Folder{ID: a.newID(), Name: name}
	err := a.store.CreateFolder(f)
	if errors.Is(err, store.ErrDuplicateKey) {
		a.log.Warn("folder id collision, retrying with fresh id", zap.String("folderId", f.ID))
		f.ID = a.newID()
		err = a.store.CreateFolder(f)
	}
	if err != nil {
		a.log.Error("create folder failed", zap.String("op", "createFolder"), zap.Error(err))
		return nil, err
	}

	a.dispatch(state.CreateFolder(*f))
	return f, nil
}

// RenameFolder sets a folder's display name.
func (a *App) RenameFolder(id, name string) error {
	if name == "" {
		return fmt.Errorf("folder name: %w", ErrEmptyField)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.UpdateFolderName(id, name); err != nil {
		a.log.Error("rename folder failed", zap.String("op", "renameFolder"), zap.String("folderId", id), zap.Error(err))
		return err
	}

	a.dispatch(state.UpdateFolder(id, name))
	return nil
}

// DeleteFolder removes a folder and cascades to every card that
// references it; the store itself does not cascade, so orphaned rows
// would otherwise stay reachable through the folder index. If the
// deleted folder was open, the current-folder reference is cleared.
func (a *App) DeleteFolder(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed, err := a.store.RemoveCardsByFolder(id)
	if err != nil {
		a.log.Error("cascade delete failed", zap.String("op", "deleteFolder"), zap.String("folderId", id), zap.Error(err))
		return err
	}
	if err := a.store.RemoveFolder(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.Error("delete folder failed", zap.String("op", "deleteFolder"), zap.String("folderId", id), zap.Error(err))
		return err
	}

	a.log.Info("folder deleted", zap.String("folderId", id), zap.Int("cardsRemoved", removed))

	a.dispatch(state.DeleteFolder(id))
	if a.state.CurrentFolderID == id {
		a.dispatch(state.SetCurrentFolder(""))
		a.dispatch(state.SetAppView(state.ViewFolders))
	}
	return nil
}

// =============================================================================
// Card commands
// =============================================================================

// CreateCard adds a card to an existing folder and bumps that
// folder's card count.
func (a *App) CreateCard(folderID, front, back string) (*store.Card, error) {
	if front == "" || back == "" {
		return nil, fmt.Errorf("card content: %w", ErrEmptyField)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	folder, err := a.store.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, store.ErrNotFound)
	}

	c := &store.Card{ID: a.newID(), FolderID: folderID, Front: front, Back: back}
	err = a.store.CreateCard(c)
	if errors.Is(err, store.ErrDuplicateKey) {
		c.ID = a.newID()
		err = a.store.CreateCard(c)
	}
	if err != nil {
		a.log.Error("create card failed", zap.String("op", "createCard"), zap.String("folderId", folderID), zap.Error(err))
		return nil, err
	}
	if err := a.store.IncrementCardCount(folderID, 1); err != nil {
		a.log.Error("card count increment failed", zap.String("folderId", folderID), zap.Error(err))
		// The card row already landed; remove it so a failed command
		// leaves the store consistent.
		if derr := a.store.DeleteCard(c.ID); derr != nil {
			a.log.Error("card rollback failed", zap.String("cardId", c.ID), zap.Error(derr))
		}
		return nil, err
	}

	a.dispatch(state.CreateCard(folderID))
	return c, nil
}

// UpdateCard replaces a card's front and back text.
func (a *App) UpdateCard(cardID, front, back string) error {
	if front == "" || back == "" {
		return fmt.Errorf("card content: %w", ErrEmptyField)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	patch := store.CardPatch{Front: &front, Back: &back}
	if err := a.store.UpdateCardContent(cardID, patch); err != nil {
		a.log.Error("update card failed", zap.String("op", "updateCard"), zap.String("cardId", cardID), zap.Error(err))
		return err
	}

	a.dispatch(state.RefreshCards())
	return nil
}

// DeleteCard removes a card and decrements its folder's card count.
func (a *App) DeleteCard(cardID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.store.GetCard(cardID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("card %s: %w", cardID, store.ErrNotFound)
	}

	if err := a.store.DeleteCard(cardID); err != nil {
		a.log.Error("delete card failed", zap.String("op", "deleteCard"), zap.String("cardId", cardID), zap.Error(err))
		return err
	}
	if err := a.store.IncrementCardCount(c.FolderID, -1); err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.Error("card count decrement failed", zap.String("folderId", c.FolderID), zap.Error(err))
		return err
	}

	a.dispatch(state.DeleteCard(c.FolderID, cardID))
	return nil
}

// MarkAnswer records one answer event: exactly one of the two
// counters increments, and lastReviewed is stamped with the current
// time. The timestamp is materialized here, not inside the reducer.
func (a *App) MarkAnswer(cardID string, correct bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	correctDelta, incorrectDelta := 0, 1
	if correct {
		correctDelta, incorrectDelta = 1, 0
	}
	reviewedAt := a.now().UTC().Format(time.RFC3339)

	if err := a.store.UpdateCardStats(cardID, correctDelta, incorrectDelta, reviewedAt); err != nil {
		a.log.Error("stats update failed", zap.String("op", "markAnswer"), zap.String("cardId", cardID), zap.Error(err))
		return err
	}

	a.dispatch(state.RefreshCards())
	return nil
}

// =============================================================================
// Navigation and reads
// =============================================================================

// SetCurrentFolder opens a folder. An id not present in the folder
// list clears the reference instead, preserving the invariant that a
// non-empty current folder always names a known folder.
func (a *App) SetCurrentFolder(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id != "" {
		known := false
		for _, f := range a.state.Folders {
			if f.ID == id {
				known = true
				break
			}
		}
		if !known {
			a.log.Warn("current folder set to unknown id, clearing", zap.String("folderId", id))
			id = ""
		}
	}
	a.dispatch(state.SetCurrentFolder(id))
}

func (a *App) SetAppView(v state.AppView) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(state.SetAppView(v))
}

func (a *App) SetViewMode(m state.ViewMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(state.SetViewMode(m))
}

// CurrentFolder returns the open folder, or nil.
func (a *App) CurrentFolder() *store.Folder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.CurrentFolder()
}

// Cards fetches a folder's card list from the store; card content is
// not mirrored in memory. An empty folderID lists every card.
func (a *App) Cards(folderID string) ([]*store.Card, error) {
	if folderID == "" {
		return a.store.ListCards()
	}
	return a.store.ListCardsByFolder(folderID)
}

// CardsInCurrentFolder fetches the open folder's cards, empty when no
// folder is open.
func (a *App) CardsInCurrentFolder() ([]*store.Card, error) {
	a.mu.Lock()
	id := a.state.CurrentFolderID
	a.mu.Unlock()

	if id == "" {
		return nil, nil
	}
	return a.store.ListCardsByFolder(id)
}

// =============================================================================
// Bulk state synchronization
// =============================================================================

// ReloadFromStore replaces the in-memory folder list with the store's
// contents and closes any open folder. Called after hydration and
// after an import, when the previously open folder may be gone.
func (a *App) ReloadFromStore() error {
	folders, err := a.store.ListFolders()
	if err != nil {
		return err
	}

	list := make([]store.Folder, len(folders))
	for i, f := range folders {
		list[i] = *f
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(state.SetFolders(list))
	a.dispatch(state.SetCurrentFolder(""))
	a.dispatch(state.RefreshCards())
	return nil
}

// ClearAll empties both collections and resets the in-memory state.
func (a *App) ClearAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Clear(); err != nil {
		a.log.Error("clear all failed", zap.String("op", "clearAll"), zap.Error(err))
		return err
	}

	// CardRefreshSeq must never repeat a value: callers key caches on
	// it, so the reset carries the old sequence forward.
	next := state.Initial()
	next.CardRefreshSeq = a.state.CardRefreshSeq + 1
	a.state = next
	return nil
}
