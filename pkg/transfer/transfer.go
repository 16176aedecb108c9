// Package transfer produces and consumes portable JSON snapshots of
// the flashcard store: export to a downloadable document, validated
// import back in.
package transfer

import (
	"errors"

	"github.com/cardfolio/gocard/internal/store"
)

// Filename is the fixed download name for exported snapshots.
const Filename = "flashcard-data.json"

// MaxImportBytes caps import files at 10 MiB. A file of exactly this
// size still passes.
const MaxImportBytes = 10 << 20

// Import-boundary errors. Each is user-recoverable; the import aborts
// with no partial state change.
var (
	ErrFileTooLarge     = errors.New("transfer: file size exceeds limit")
	ErrInvalidFileType  = errors.New("transfer: invalid file type")
	ErrInvalidFormat    = errors.New("transfer: invalid file format")
	ErrMergeUnsupported = errors.New("transfer: merge strategy not supported")
	ErrImportInFlight   = errors.New("transfer: another import is already running")
)

// Strategy selects how imported data meets existing data.
type Strategy string

const (
	// StrategyOverwrite clears both collections and restores the
	// document verbatim, ids preserved.
	StrategyOverwrite Strategy = "overwrite"

	// StrategyMerge is reserved. It is rejected rather than guessed
	// at: no merge semantics have been decided.
	StrategyMerge Strategy = "merge"
)

// Metadata carries consistency counts for an export document. Counts
// must equal the corresponding array lengths; importers verify this.
type Metadata struct {
	TotalFolders int    `json:"totalFolders" validate:"gte=0"`
	TotalCards   int    `json:"totalCards" validate:"gte=0"`
	Checksum     string `json:"checksum,omitempty"`
}

// Document is the versionable snapshot shape exchanged with the
// outside world. The validate tags are the single declarative schema
// for the import boundary; the record shapes themselves carry their
// own tags in the store package.
type Document struct {
	ExportedAt string         `json:"exportedAt" validate:"required"`
	Folders    []store.Folder `json:"folders" validate:"dive"`
	Cards      []store.Card   `json:"cards" validate:"dive"`
	Metadata   *Metadata      `json:"metadata" validate:"required"`
}

// File is an import candidate as handed over by the UI shell: the
// browser file's name, MIME type and contents.
type File struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// Export bundles a serialized document with its download filename.
type Export struct {
	Filename string
	Data     []byte
	Doc      *Document
}
