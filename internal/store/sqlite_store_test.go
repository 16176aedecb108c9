package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFolderCRUD(t *testing.T) {
	s := newTestStore(t)

	f := &Folder{ID: "f1", Name: "Biology"}
	require.NoError(t, s.CreateFolder(f))

	got, err := s.GetFolder("f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Biology", got.Name)
	assert.Equal(t, 0, got.CardCount)

	// duplicate id
	err = s.CreateFolder(&Folder{ID: "f1", Name: "Again"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// rename
	require.NoError(t, s.UpdateFolderName("f1", "Chemistry"))
	got, err = s.GetFolder("f1")
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", got.Name)

	// rename miss
	assert.ErrorIs(t, s.UpdateFolderName("nope", "x"), ErrNotFound)

	// read miss is nil, not an error
	got, err = s.GetFolder("nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	// delete
	require.NoError(t, s.RemoveFolder("f1"))
	assert.ErrorIs(t, s.RemoveFolder("f1"), ErrNotFound)
}

func TestListFoldersInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.CreateFolder(&Folder{ID: id, Name: "Folder " + id}))
	}

	folders, err := s.ListFolders()
	require.NoError(t, err)
	require.Len(t, folders, 3)
	assert.Equal(t, "c", folders[0].ID)
	assert.Equal(t, "a", folders[1].ID)
	assert.Equal(t, "b", folders[2].ID)
}

func TestIncrementCardCountClampsAtZero(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))

	require.NoError(t, s.IncrementCardCount("f1", 2))
	f, err := s.GetFolder("f1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.CardCount)

	require.NoError(t, s.IncrementCardCount("f1", -5))
	f, err = s.GetFolder("f1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.CardCount)

	assert.ErrorIs(t, s.IncrementCardCount("nope", 1), ErrNotFound)
}

func TestCardCRUD(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))

	c := &Card{ID: "c1", FolderID: "f1", Front: "Q1", Back: "A1"}
	require.NoError(t, s.CreateCard(c))

	assert.ErrorIs(t, s.CreateCard(&Card{ID: "c1", FolderID: "f1", Front: "x", Back: "y"}), ErrDuplicateKey)

	got, err := s.GetCard("c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Q1", got.Front)
	assert.Empty(t, got.LastReviewed)

	// partial content update
	newFront := "Q1 v2"
	require.NoError(t, s.UpdateCardContent("c1", CardPatch{Front: &newFront}))
	got, err = s.GetCard("c1")
	require.NoError(t, err)
	assert.Equal(t, "Q1 v2", got.Front)
	assert.Equal(t, "A1", got.Back)

	assert.ErrorIs(t, s.UpdateCardContent("nope", CardPatch{}), ErrNotFound)

	require.NoError(t, s.DeleteCard("c1"))
	assert.ErrorIs(t, s.DeleteCard("c1"), ErrNotFound)
}

func TestListCardsByFolderStableOrder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))
	require.NoError(t, s.CreateFolder(&Folder{ID: "f2", Name: "G"}))

	require.NoError(t, s.CreateCard(&Card{ID: "c2", FolderID: "f1", Front: "q", Back: "a"}))
	require.NoError(t, s.CreateCard(&Card{ID: "x1", FolderID: "f2", Front: "q", Back: "a"}))
	require.NoError(t, s.CreateCard(&Card{ID: "c1", FolderID: "f1", Front: "q", Back: "a"}))

	for i := 0; i < 3; i++ {
		cards, err := s.ListCardsByFolder("f1")
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, "c2", cards[0].ID)
		assert.Equal(t, "c1", cards[1].ID)
	}

	cards, err := s.ListCardsByFolder("unknown")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestUpdateCardStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))
	require.NoError(t, s.CreateCard(&Card{ID: "c1", FolderID: "f1", Front: "q", Back: "a"}))

	require.NoError(t, s.UpdateCardStats("c1", 1, 0, "2024-03-01T10:00:00Z"))
	require.NoError(t, s.UpdateCardStats("c1", 0, 1, "2024-03-01T10:05:00Z"))

	c, err := s.GetCard("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Correct)
	assert.Equal(t, 1, c.Incorrect)
	assert.Equal(t, "2024-03-01T10:05:00Z", c.LastReviewed)

	// empty timestamp leaves the stored one untouched
	require.NoError(t, s.UpdateCardStats("c1", 1, 0, ""))
	c, err = s.GetCard("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Correct)
	assert.Equal(t, "2024-03-01T10:05:00Z", c.LastReviewed)

	assert.ErrorIs(t, s.UpdateCardStats("nope", 1, 0, ""), ErrNotFound)
}

// Two un-awaited stat updates on the same card must both land: the
// increment is a single UPDATE, not a read-modify-write round trip.
func TestUpdateCardStatsConcurrent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))
	require.NoError(t, s.CreateCard(&Card{ID: "c1", FolderID: "f1", Front: "q", Back: "a"}))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.UpdateCardStats("c1", 1, 0, "2024-03-01T10:00:00Z")
		}()
	}
	wg.Wait()

	c, err := s.GetCard("c1")
	require.NoError(t, err)
	assert.Equal(t, n, c.Correct)
}

func TestRemoveCardsByFolder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "f1", Name: "F"}))
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.CreateCard(&Card{ID: id, FolderID: "f1", Front: "q", Back: "a"}))
	}
	require.NoError(t, s.CreateFolder(&Folder{ID: "f2", Name: "G"}))
	require.NoError(t, s.CreateCard(&Card{ID: "x1", FolderID: "f2", Front: "q", Back: "a"}))

	n, err := s.RemoveCardsByFolder("f1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cards, err := s.ListCardsByFolder("f1")
	require.NoError(t, err)
	assert.Empty(t, cards)

	// other folder untouched
	cards, err = s.ListCardsByFolder("f2")
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	// empty folder is not an error
	n, err = s.RemoveCardsByFolder("f1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkInsertAtomicity(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateFolder(&Folder{ID: "existing", Name: "E"}))

	folders := []*Folder{
		{ID: "f1", Name: "A"},
		{ID: "existing", Name: "collides"},
	}
	err := s.BulkInsert(folders, nil)
	require.Error(t, err)

	// nothing from the failed batch remains
	got, err := s.GetFolder("f1")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.CountFolders()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBulkInsertAndClear(t *testing.T) {
	s := newTestStore(t)

	folders := []*Folder{{ID: "f1", Name: "A", CardCount: 1}}
	cards := []*Card{{ID: "c1", FolderID: "f1", Front: "q", Back: "a", Correct: 3, Incorrect: 1, LastReviewed: "2024-01-01T00:00:00Z"}}
	require.NoError(t, s.BulkInsert(folders, cards))

	c, err := s.GetCard("c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 3, c.Correct)
	assert.Equal(t, "2024-01-01T00:00:00Z", c.LastReviewed)

	require.NoError(t, s.Clear())
	nf, err := s.CountFolders()
	require.NoError(t, err)
	nc, err := s.CountCards()
	require.NoError(t, err)
	assert.Zero(t, nf)
	assert.Zero(t, nc)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListFolders()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.CreateFolder(&Folder{ID: "f", Name: "F"}), ErrNotInitialized)

	// Close is idempotent
	assert.NoError(t, s.Close())
}

// Reopening the same database must not duplicate schema or lose data.
func TestOpenIdempotentSchema(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/gocard.db"

	s1, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s1.CreateFolder(&Folder{ID: "f1", Name: "F"}))
	require.NoError(t, s1.Close())

	s2, err := Open(dsn)
	require.NoError(t, err)
	defer s2.Close()

	f, err := s2.GetFolder("f1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "F", f.Name)
}
