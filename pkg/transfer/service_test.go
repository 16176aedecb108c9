package transfer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardfolio/gocard/internal/store"
)

var testClock = func() time.Time {
	return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func seededStore(t *testing.T) store.Storer {
	t.Helper()
	m := store.NewMem()
	require.NoError(t, m.CreateFolder(&store.Folder{ID: "f1", Name: "Biology", CardCount: 2}))
	require.NoError(t, m.CreateFolder(&store.Folder{ID: "f2", Name: "History", CardCount: 0}))
	require.NoError(t, m.CreateCard(&store.Card{ID: "c1", FolderID: "f1", Front: "Q1", Back: "A1", Correct: 3, Incorrect: 1, LastReviewed: "2024-02-01T00:00:00Z"}))
	require.NoError(t, m.CreateCard(&store.Card{ID: "c2", FolderID: "f1", Front: "Q2", Back: "A2"}))
	return m
}

func jsonFile(data []byte) File {
	return File{Name: "flashcard-data.json", Type: "application/json", Size: int64(len(data)), Data: data}
}

func TestExportDocumentShape(t *testing.T) {
	svc := NewService(seededStore(t), WithClock(testClock))

	exp, err := svc.Export()
	require.NoError(t, err)
	assert.Equal(t, "flashcard-data.json", exp.Filename)

	doc := exp.Doc
	assert.Equal(t, "2024-03-01T10:00:00Z", doc.ExportedAt)
	assert.Len(t, doc.Folders, 2)
	assert.Len(t, doc.Cards, 2)
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, 2, doc.Metadata.TotalFolders)
	assert.Equal(t, 2, doc.Metadata.TotalCards)
	assert.NotEmpty(t, doc.Metadata.Checksum)

	// the serialized form carries the same shape
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(exp.Data, &decoded))
	for _, key := range []string{"exportedAt", "folders", "cards", "metadata"} {
		assert.Contains(t, decoded, key)
	}
}

func TestExportEmptyStore(t *testing.T) {
	svc := NewService(store.NewMem(), WithClock(testClock))

	exp, err := svc.Export()
	require.NoError(t, err)
	assert.Zero(t, exp.Doc.Metadata.TotalFolders)
	assert.Zero(t, exp.Doc.Metadata.TotalCards)

	// empty collections serialize as arrays, not null
	assert.Contains(t, string(exp.Data), `"folders":[]`)
	assert.Contains(t, string(exp.Data), `"cards":[]`)
}

// Export then re-import with overwrite must reproduce the identical
// record sets: same ids, names, content, stats.
func TestRoundTrip(t *testing.T) {
	src := seededStore(t)
	exp, err := NewService(src, WithClock(testClock)).Export()
	require.NoError(t, err)

	dst := store.NewMem()
	// pre-existing data must be gone afterwards
	require.NoError(t, dst.CreateFolder(&store.Folder{ID: "old", Name: "Old"}))

	svc := NewService(dst, WithClock(testClock))
	doc, err := svc.ParseImport(jsonFile(exp.Data))
	require.NoError(t, err)
	require.NoError(t, svc.Merge(doc, StrategyOverwrite))

	gone, err := dst.GetFolder("old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	wantFolders, err := src.ListFolders()
	require.NoError(t, err)
	gotFolders, err := dst.ListFolders()
	require.NoError(t, err)
	require.Equal(t, len(wantFolders), len(gotFolders))
	for i := range wantFolders {
		assert.Equal(t, *wantFolders[i], *gotFolders[i])
	}

	wantCards, err := src.ListCards()
	require.NoError(t, err)
	gotCards, err := dst.ListCards()
	require.NoError(t, err)
	require.Equal(t, len(wantCards), len(gotCards))
	for i := range wantCards {
		assert.Equal(t, *wantCards[i], *gotCards[i])
	}
}

func TestParseImportSizeBoundary(t *testing.T) {
	svc := NewService(store.NewMem())
	exp, err := NewService(seededStore(t), WithClock(testClock)).Export()
	require.NoError(t, err)

	// exactly at the limit passes the size check
	f := jsonFile(exp.Data)
	f.Size = MaxImportBytes
	_, err = svc.ParseImport(f)
	assert.NoError(t, err)

	// one byte over fails
	f.Size = MaxImportBytes + 1
	_, err = svc.ParseImport(f)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestParseImportRejectsWrongMIME(t *testing.T) {
	svc := NewService(store.NewMem())
	f := jsonFile([]byte(`{}`))
	f.Type = "text/plain"
	_, err := svc.ParseImport(f)
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestParseImportRejectsMalformed(t *testing.T) {
	svc := NewService(store.NewMem())

	cases := map[string]string{
		"not json":         `{"exportedAt":`,
		"missing metadata": `{"exportedAt":"2024-03-01T10:00:00Z","folders":[],"cards":[]}`,
		"missing exportedAt": `{"folders":[],"cards":[],
			"metadata":{"totalFolders":0,"totalCards":0}}`,
		"negative count": `{"exportedAt":"2024-03-01T10:00:00Z","folders":[],"cards":[],
			"metadata":{"totalFolders":-1,"totalCards":0}}`,
		"count mismatch": `{"exportedAt":"2024-03-01T10:00:00Z",
			"folders":[{"id":"f1","name":"F","cardCount":0}],"cards":[],
			"metadata":{"totalFolders":2,"totalCards":0}}`,
		"folder missing name": `{"exportedAt":"2024-03-01T10:00:00Z",
			"folders":[{"id":"f1","cardCount":0}],"cards":[],
			"metadata":{"totalFolders":1,"totalCards":0}}`,
		"missing folders key": `{"exportedAt":"2024-03-01T10:00:00Z","cards":[],
			"metadata":{"totalFolders":0,"totalCards":0}}`,
		"missing cards key": `{"exportedAt":"2024-03-01T10:00:00Z","folders":[],
			"metadata":{"totalFolders":0,"totalCards":0}}`,
		"null cards": `{"exportedAt":"2024-03-01T10:00:00Z","folders":[],"cards":null,
			"metadata":{"totalFolders":0,"totalCards":0}}`,
		"card negative stat": `{"exportedAt":"2024-03-01T10:00:00Z","folders":[],
			"cards":[{"id":"c1","folderId":"f1","front":"q","back":"a","correct":-1,"incorrect":0}],
			"metadata":{"totalFolders":0,"totalCards":1}}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseImport(jsonFile([]byte(payload)))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParseImportChecksumVerification(t *testing.T) {
	exp, err := NewService(seededStore(t), WithClock(testClock)).Export()
	require.NoError(t, err)
	svc := NewService(store.NewMem())

	// verbatim export verifies
	_, err = svc.ParseImport(jsonFile(exp.Data))
	require.NoError(t, err)

	// tampering with the payload breaks the pinned checksum
	tampered := strings.Replace(string(exp.Data), `"Biology"`, `"Forgery"`, 1)
	require.NotEqual(t, string(exp.Data), tampered)
	_, err = svc.ParseImport(jsonFile([]byte(tampered)))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	// a document without a checksum is still acceptable
	var doc Document
	require.NoError(t, json.Unmarshal(exp.Data, &doc))
	doc.Metadata.Checksum = ""
	data, err := json.Marshal(&doc)
	require.NoError(t, err)
	_, err = svc.ParseImport(jsonFile(data))
	assert.NoError(t, err)
}

func TestMergeStrategyHandling(t *testing.T) {
	svc := NewService(store.NewMem())
	doc := &Document{ExportedAt: "2024-03-01T10:00:00Z", Metadata: &Metadata{}}

	assert.ErrorIs(t, svc.Merge(doc, StrategyMerge), ErrMergeUnsupported)
	assert.Error(t, svc.Merge(doc, Strategy("upsert")))
}

func TestMergeRejectsConcurrentImport(t *testing.T) {
	svc := NewService(store.NewMem())
	svc.busy.Store(true)

	doc := &Document{ExportedAt: "2024-03-01T10:00:00Z", Metadata: &Metadata{}}
	assert.ErrorIs(t, svc.Merge(doc, StrategyOverwrite), ErrImportInFlight)

	svc.busy.Store(false)
	assert.NoError(t, svc.Merge(doc, StrategyOverwrite))
}

// A failing bulk insert leaves the store cleared, never mixed.
func TestMergeInsertFailureLeavesNoMix(t *testing.T) {
	m := store.NewMem()
	require.NoError(t, m.CreateFolder(&store.Folder{ID: "old", Name: "Old"}))
	svc := NewService(m)

	doc := &Document{
		ExportedAt: "2024-03-01T10:00:00Z",
		Folders: []store.Folder{
			{ID: "f1", Name: "A"},
			{ID: "f1", Name: "duplicate id"},
		},
		Metadata: &Metadata{TotalFolders: 2},
	}

	err := svc.Merge(doc, StrategyOverwrite)
	require.Error(t, err)

	n, err := m.CountFolders()
	require.NoError(t, err)
	assert.Zero(t, n)
}

