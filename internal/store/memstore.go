package store

import (
	"fmt"
	"sync"
)

// MemStore is the in-memory Storer variant. It backs environments
// where persistent storage is unavailable (the no-op/fallback adapter
// role) and doubles as the test double for the effect layer. Same
// contract as SQLiteStore, including error taxonomy and stable
// insertion order.
type MemStore struct {
	mu      sync.RWMutex
	folders map[string]*Folder
	cards   map[string]*Card

	// insertion order for stable listing
	folderOrder []string
	cardOrder   []string

	closed bool

	// FailNext, when set, makes the next mutating operation fail with
	// the given error. Lets tests exercise store-failure paths.
	FailNext error
}

// NewMem creates an empty in-memory store.
func NewMem() *MemStore {
	return &MemStore{
		folders: make(map[string]*Folder),
		cards:   make(map[string]*Card),
	}
}

func (m *MemStore) guard() error {
	if m.closed {
		return ErrNotInitialized
	}
	if err := m.FailNext; err != nil {
		m.FailNext = nil
		return err
	}
	return nil
}

// =============================================================================
// Folders
// =============================================================================

func (m *MemStore) CreateFolder(f *Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.folders[f.ID]; ok {
		return fmt.Errorf("folder %s: %w", f.ID, ErrDuplicateKey)
	}
	cp := *f
	m.folders[f.ID] = &cp
	m.folderOrder = append(m.folderOrder, f.ID)
	return nil
}

func (m *MemStore) GetFolder(id string) (*Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	f, ok := m.folders[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *MemStore) ListFolders() ([]*Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	var out []*Folder
	for _, id := range m.folderOrder {
		cp := *m.folders[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) UpdateFolderName(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	f, ok := m.folders[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	f.Name = name
	return nil
}

func (m *MemStore) IncrementCardCount(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	f, ok := m.folders[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	f.CardCount += delta
	if f.CardCount < 0 {
		f.CardCount = 0
	}
	return nil
}

func (m *MemStore) RemoveFolder(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.folders[id]; !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	delete(m.folders, id)
	m.folderOrder = remove(m.folderOrder, id)
	return nil
}

func (m *MemStore) CountFolders() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrNotInitialized
	}
	return len(m.folders), nil
}

// =============================================================================
// Cards
// =============================================================================

func (m *MemStore) CreateCard(c *Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.cards[c.ID]; ok {
		return fmt.Errorf("card %s: %w", c.ID, ErrDuplicateKey)
	}
	cp := *c
	m.cards[c.ID] = &cp
	m.cardOrder = append(m.cardOrder, c.ID)
	return nil
}

func (m *MemStore) GetCard(id string) (*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	c, ok := m.cards[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemStore) ListCards() ([]*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	var out []*Card
	for _, id := range m.cardOrder {
		cp := *m.cards[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) ListCardsByFolder(folderID string) ([]*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	var out []*Card
	for _, id := range m.cardOrder {
		if m.cards[id].FolderID == folderID {
			cp := *m.cards[id]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) UpdateCardContent(id string, patch CardPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	c, ok := m.cards[id]
	if !ok {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if patch.Front != nil {
		c.Front = *patch.Front
	}
	if patch.Back != nil {
		c.Back = *patch.Back
	}
	return nil
}

func (m *MemStore) UpdateCardStats(id string, correctDelta, incorrectDelta int, lastReviewed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	c, ok := m.cards[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	c.Correct += correctDelta
	if c.Correct < 0 {
		c.Correct = 0
	}
	c.Incorrect += incorrectDelta
	if c.Incorrect < 0 {
		c.Incorrect = 0
	}
	if lastReviewed != "" {
		c.LastReviewed = lastReviewed
	}
	return nil
}

func (m *MemStore) DeleteCard(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.cards[id]; !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	delete(m.cards, id)
	m.cardOrder = remove(m.cardOrder, id)
	return nil
}

func (m *MemStore) RemoveCardsByFolder(folderID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return 0, err
	}
	n := 0
	kept := m.cardOrder[:0]
	for _, id := range m.cardOrder {
		if m.cards[id].FolderID == folderID {
			delete(m.cards, id)
			n++
		} else {
			kept = append(kept, id)
		}
	}
	m.cardOrder = kept
	return n, nil
}

func (m *MemStore) CountCards() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrNotInitialized
	}
	return len(m.cards), nil
}

// =============================================================================
// Import/export support
// =============================================================================

// BulkInsert mirrors the SQLite transaction contract: if any record
// collides, no record from the batch is kept.
func (m *MemStore) BulkInsert(folders []*Folder, cards []*Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	seenF := make(map[string]bool, len(folders))
	for _, f := range folders {
		if _, ok := m.folders[f.ID]; ok || seenF[f.ID] {
			return fmt.Errorf("bulk insert folder %s: %w", f.ID, ErrDuplicateKey)
		}
		seenF[f.ID] = true
	}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if _, ok := m.cards[c.ID]; ok || seen[c.ID] {
			return fmt.Errorf("bulk insert card %s: %w", c.ID, ErrDuplicateKey)
		}
		seen[c.ID] = true
	}

	for _, f := range folders {
		cp := *f
		m.folders[f.ID] = &cp
		m.folderOrder = append(m.folderOrder, f.ID)
	}
	for _, c := range cards {
		cp := *c
		m.cards[c.ID] = &cp
		m.cardOrder = append(m.cardOrder, c.ID)
	}
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.guard(); err != nil {
		return err
	}
	m.folders = make(map[string]*Folder)
	m.cards = make(map[string]*Card)
	m.folderOrder = nil
	m.cardOrder = nil
	return nil
}

// Close marks the store unusable, mirroring a closed database handle.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
