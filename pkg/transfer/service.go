package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cardfolio/gocard/internal/store"
)

// Service reads and writes snapshots against a store. It assumes
// at most one import runs at a time and enforces that with a fail-fast
// in-flight guard rather than queueing.
type Service struct {
	store    store.Storer
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
	busy     atomic.Bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger attaches a structured logger. Nop by default.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the export timestamp source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService builds an import/export service over an open store.
func NewService(st store.Storer, opts ...ServiceOption) *Service {
	s := &Service{
		store:    st,
		validate: validator.New(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export reads the full store and builds the snapshot document. The
// metadata counts are set from the arrays at export time, and the
// checksum pins the payload for later verification.
func (s *Service) Export() (*Export, error) {
	folders, err := s.store.ListFolders()
	if err != nil {
		return nil, fmt.Errorf("export folders: %w", err)
	}
	cards, err := s.store.ListCards()
	if err != nil {
		return nil, fmt.Errorf("export cards: %w", err)
	}

	doc := &Document{
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Folders:    make([]store.Folder, len(folders)),
		Cards:      make([]store.Card, len(cards)),
	}
	for i, f := range folders {
		doc.Folders[i] = *f
	}
	for i, c := range cards {
		doc.Cards[i] = *c
	}
	doc.Metadata = &Metadata{
		TotalFolders: len(doc.Folders),
		TotalCards:   len(doc.Cards),
		Checksum:     checksum(doc.Folders, doc.Cards),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("export marshal: %w", err)
	}

	s.log.Info("export built",
		zap.Int("folders", len(doc.Folders)),
		zap.Int("cards", len(doc.Cards)))

	return &Export{Filename: Filename, Data: data, Doc: doc}, nil
}

// ParseImport validates an import candidate end to end: size cap,
// MIME type, JSON shape, declarative schema, count and checksum
// consistency. Schema-level diagnostics collapse into the single
// ErrInvalidFormat category.
func (s *Service) ParseImport(f File) (*Document, error) {
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	if size > MaxImportBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	if f.Type != "application/json" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileType, f.Type)
	}

	var doc Document
	if err := json.Unmarshal(f.Data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	// An absent or null collection key unmarshals to a nil slice; an
	// empty export carries explicit [] arrays, so nil means the shape
	// is wrong.
	if doc.Folders == nil || doc.Cards == nil {
		return nil, fmt.Errorf("%w: folders and cards arrays are required", ErrInvalidFormat)
	}
	if err := s.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Metadata.TotalFolders != len(doc.Folders) || doc.Metadata.TotalCards != len(doc.Cards) {
		return nil, fmt.Errorf("%w: metadata counts do not match payload", ErrInvalidFormat)
	}
	if doc.Metadata.Checksum != "" && doc.Metadata.Checksum != checksum(doc.Folders, doc.Cards) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidFormat)
	}

	return &doc, nil
}

// Merge lands a parsed document in the store. Overwrite clears both
// collections first and restores the document in one transaction, so
// a failure partway can never leave old and new records mixed: either
// the bulk insert commits whole or the store is simply empty.
// After Merge the caller must resynchronize in-memory state from the
// store (App.ReloadFromStore).
func (s *Service) Merge(doc *Document, strategy Strategy) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrImportInFlight
	}
	defer s.busy.Store(false)

	switch strategy {
	case StrategyOverwrite:
		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("import clear: %w", err)
		}

		folders := make([]*store.Folder, len(doc.Folders))
		for i := range doc.Folders {
			folders[i] = &doc.Folders[i]
		}
		cards := make([]*store.Card, len(doc.Cards))
		for i := range doc.Cards {
			cards[i] = &doc.Cards[i]
		}

		if err := s.store.BulkInsert(folders, cards); err != nil {
			s.log.Error("import insert failed", zap.Error(err))
			return fmt.Errorf("import insert: %w", err)
		}

		s.log.Info("import complete",
			zap.Int("folders", len(folders)),
			zap.Int("cards", len(cards)))
		return nil

	case StrategyMerge:
		return ErrMergeUnsupported

	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidFormat, strategy)
	}
}

// checksum is the SHA-256 hex of the canonical folders+cards JSON.
// Struct field order makes the marshaling deterministic for a given
// record order.
func checksum(folders []store.Folder, cards []store.Card) string {
	payload := struct {
		Folders []store.Folder `json:"folders"`
		Cards   []store.Card   `json:"cards"`
	}{folders, cards}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
