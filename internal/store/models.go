// Package store provides SQLite-backed persistence for GoCard.
// This is the durable data layer behind the flashcard state machine:
// two collections (folders, cards) with a secondary index on the
// cards' folder reference.
package store

// Folder is a named collection of flashcards. CardCount is a
// denormalized cache of how many cards reference this folder; the
// effect layer keeps it in sync incrementally because card lists are
// loaded lazily per folder.
type Folder struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	CardCount int    `json:"cardCount" validate:"gte=0"`
}

// Card is a front/back question-answer pair with review statistics.
// FolderID is set at creation and never changes; cards do not move
// between folders.
type Card struct {
	ID           string `json:"id" validate:"required"`
	FolderID     string `json:"folderId" validate:"required"`
	Front        string `json:"front" validate:"required"`
	Back         string `json:"back" validate:"required"`
	Correct      int    `json:"correct" validate:"gte=0"`
	Incorrect    int    `json:"incorrect" validate:"gte=0"`
	LastReviewed string `json:"lastReviewed,omitempty"`
}

// CardPatch carries a partial content update for a card. Nil fields
// are left unchanged.
type CardPatch struct {
	Front *string
	Back  *string
}

// Storer is the storage capability interface for the flashcard data
// layer. SQLiteStore is the primary implementation; MemStore backs
// environments without persistent storage and tests. Read misses
// return nil / empty slices, never an error; update and delete misses
// return ErrNotFound.
type Storer interface {
	// Folders
	CreateFolder(f *Folder) error
	GetFolder(id string) (*Folder, error)
	ListFolders() ([]*Folder, error)
	UpdateFolderName(id, name string) error
	IncrementCardCount(id string, delta int) error
	RemoveFolder(id string) error
	CountFolders() (int, error)

	// Cards
	CreateCard(c *Card) error
	GetCard(id string) (*Card, error)
	ListCards() ([]*Card, error)
	ListCardsByFolder(folderID string) ([]*Card, error)
	UpdateCardContent(id string, patch CardPatch) error
	UpdateCardStats(id string, correctDelta, incorrectDelta int, lastReviewed string) error
	DeleteCard(id string) error
	RemoveCardsByFolder(folderID string) (int, error)
	CountCards() (int, error)

	// Import/export support
	BulkInsert(folders []*Folder, cards []*Card) error
	Clear() error

	// Lifecycle
	Close() error
}
