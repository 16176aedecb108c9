//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/cardfolio/gocard/internal/store"
	"github.com/cardfolio/gocard/pkg/app"
	"github.com/cardfolio/gocard/pkg/search"
	"github.com/cardfolio/gocard/pkg/state"
	"github.com/cardfolio/gocard/pkg/transfer"
)

// Version info
const Version = "1.0.0"

// Global state
var (
	logger      *zap.Logger
	hydrator    *app.Hydrator
	application *app.App
	transferSvc *transfer.Service

	// Search index, rebuilt lazily when the card set changes
	searchIdx    *search.Index
	searchIdxSeq = -1

	// Data source name; the JS caller may point it at an OPFS-backed
	// file before the first initialize
	dsn = ":memory:"
)

func main() {
	logger, _ = zap.NewDevelopment()
	defer logger.Sync()

	hydrator = app.NewHydrator(
		func() (store.Storer, error) { return store.Open(dsn) },
		app.WithSeedData(),
		app.WithHydratorLogger(logger),
	)

	fmt.Println("[GoCard] WASM Ready v" + Version)

	// Register exports
	js.Global().Set("GoCard", js.ValueOf(map[string]interface{}{
		"version":    js.FuncOf(getVersion),
		"initialize": js.FuncOf(initialize),
		"retryInit":  js.FuncOf(retryInit),
		"initStatus": js.FuncOf(initStatus),
		// State
		"state":    js.FuncOf(getState),
		"clearAll": js.FuncOf(clearAll),
		// Folder API
		"createFolder":     js.FuncOf(createFolder),
		"renameFolder":     js.FuncOf(renameFolder),
		"deleteFolder":     js.FuncOf(deleteFolder),
		"setCurrentFolder": js.FuncOf(setCurrentFolder),
		"setAppView":       js.FuncOf(setAppView),
		"setViewMode":      js.FuncOf(setViewMode),
		// Card API
		"createCard": js.FuncOf(createCard),
		"updateCard": js.FuncOf(updateCard),
		"deleteCard": js.FuncOf(deleteCard),
		"markAnswer": js.FuncOf(markAnswer),
		"listCards":  js.FuncOf(listCards),
		// Transfer API
		"exportData":      js.FuncOf(exportData),
		"parseImportFile": js.FuncOf(parseImportFile),
		"importData":      js.FuncOf(importData),
		// Search API
		"search": js.FuncOf(doSearch),
	}))

	select {}
}

// getVersion returns the module version
func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize opens the store, seeds demo data on first run, and builds
// the application. Idempotent: once ready, repeated calls are no-ops.
// Args: [dsn string (optional)] - defaults to ":memory:"
func initialize(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 && args[0].String() != "" && args[0].String() != "null" {
		dsn = args[0].String()
	}

	a, err := hydrator.Run()
	if err != nil {
		return errorResult("initialize: " + err.Error())
	}
	application = a
	transferSvc = transfer.NewService(application.Store(), transfer.WithLogger(logger))

	fmt.Println("[GoCard] store ready")
	return stateResult()
}

// retryInit re-attempts initialization after a failure.
// Args: []
func retryInit(this js.Value, args []js.Value) interface{} {
	a, err := hydrator.Retry()
	if err != nil {
		return errorResult("retryInit: " + err.Error())
	}
	application = a
	transferSvc = transfer.NewService(application.Store(), transfer.WithLogger(logger))
	return stateResult()
}

// initStatus reports the current lifecycle phase.
// Returns: {"phase": "initializing"|"ready"|"error", "error": "..."?}
func initStatus(this js.Value, args []js.Value) interface{} {
	phase, err := hydrator.Status()
	out := map[string]interface{}{"phase": string(phase)}
	if err != nil {
		out["error"] = err.Error()
	}
	bytes, _ := json.Marshal(out)
	return string(bytes)
}

// getState returns the current UI state snapshot.
// Returns: State JSON
func getState(this js.Value, args []js.Value) interface{} {
	if application == nil {
		return errorResult("not initialized")
	}
	return stateResult()
}

// clearAll wipes every folder and card and resets the UI state.
// Args: []
func clearAll(this js.Value, args []js.Value) interface{} {
	if application == nil {
		return errorResult("not initialized")
	}
	if err := application.ClearAll(); err != nil {
		return errorResult("clearAll: " + err.Error())
	}
	return stateResult()
}

// =============================================================================
// Folder API
// =============================================================================

// createFolder creates an empty folder and opens the folder list.
// Args: [name string]
func createFolder(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("createFolder requires 1 arg: name")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	folder, err := application.CreateFolder(args[0].String())
	if err != nil {
		return errorResult("createFolder: " + err.Error())
	}

	bytes, _ := json.Marshal(folder)
	return string(bytes)
}

// renameFolder changes a folder name.
// Args: [id string, name string]
func renameFolder(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("renameFolder requires 2 args: id, name")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	if err := application.RenameFolder(args[0].String(), args[1].String()); err != nil {
		return errorResult("renameFolder: " + err.Error())
	}
	return stateResult()
}

// deleteFolder removes a folder and every card in it.
// Args: [id string]
func deleteFolder(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("deleteFolder requires 1 arg: id")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	if err := application.DeleteFolder(args[0].String()); err != nil {
		return errorResult("deleteFolder: " + err.Error())
	}
	return stateResult()
}

// setCurrentFolder selects the folder being studied.
// Args: [id string] - empty string clears the selection
func setCurrentFolder(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("setCurrentFolder requires 1 arg: id")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	application.SetCurrentFolder(args[0].String())
	return stateResult()
}

// setAppView switches between the folder list and the card view.
// Args: [view string] - "folders" or "cards"
func setAppView(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("setAppView requires 1 arg: view")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	application.SetAppView(state.AppView(args[0].String()))
	return stateResult()
}

// setViewMode switches between list and focused study mode.
// Args: [mode string] - "list" or "focus"
func setViewMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("setViewMode requires 1 arg: mode")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	application.SetViewMode(state.ViewMode(args[0].String()))
	return stateResult()
}

// =============================================================================
// Card API
// =============================================================================

// createCard adds a card to a folder.
// Args: [folderID string, front string, back string]
func createCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("createCard requires 3 args: folderID, front, back")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	card, err := application.CreateCard(args[0].String(), args[1].String(), args[2].String())
	if err != nil {
		return errorResult("createCard: " + err.Error())
	}

	bytes, _ := json.Marshal(card)
	return string(bytes)
}

// updateCard rewrites a card's front and back text.
// Args: [cardID string, front string, back string]
func updateCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("updateCard requires 3 args: cardID, front, back")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	if err := application.UpdateCard(args[0].String(), args[1].String(), args[2].String()); err != nil {
		return errorResult("updateCard: " + err.Error())
	}
	return stateResult()
}

// deleteCard removes a single card.
// Args: [cardID string]
func deleteCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("deleteCard requires 1 arg: cardID")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	if err := application.DeleteCard(args[0].String()); err != nil {
		return errorResult("deleteCard: " + err.Error())
	}
	return stateResult()
}

// markAnswer records a study answer for a card.
// Args: [cardID string, correct bool]
func markAnswer(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("markAnswer requires 2 args: cardID, correct")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	if err := application.MarkAnswer(args[0].String(), args[1].Bool()); err != nil {
		return errorResult("markAnswer: " + err.Error())
	}
	return stateResult()
}

// listCards returns cards, scoped to a folder when one is given.
// Args: [folderID string (optional)]
// Returns: JSON array of cards
func listCards(this js.Value, args []js.Value) interface{} {
	if application == nil {
		return errorResult("not initialized")
	}

	var folderID string
	if len(args) > 0 && args[0].String() != "" && args[0].String() != "null" {
		folderID = args[0].String()
	}

	cards, err := application.Cards(folderID)
	if err != nil {
		return errorResult("listCards: " + err.Error())
	}
	if cards == nil {
		cards = []*store.Card{}
	}

	bytes, _ := json.Marshal(cards)
	return string(bytes)
}

// =============================================================================
// Transfer API
// =============================================================================

// exportData serializes every folder and card into a download payload.
// Args: []
// Returns: {"filename": "...", "data": "<json>"}
func exportData(this js.Value, args []js.Value) interface{} {
	if transferSvc == nil {
		return errorResult("not initialized")
	}

	exp, err := transferSvc.Export()
	if err != nil {
		return errorResult("exportData: " + err.Error())
	}

	bytes, _ := json.Marshal(map[string]interface{}{
		"filename": exp.Filename,
		"data":     string(exp.Data),
	})
	return string(bytes)
}

// parseImportFile validates an uploaded file without touching the store.
// Args: [name string, mimeType string, size int, content string]
// Returns: the parsed document JSON, or an error result
func parseImportFile(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("parseImportFile requires 4 args: name, mimeType, size, content")
	}
	if transferSvc == nil {
		return errorResult("not initialized")
	}

	f := transfer.File{
		Name: args[0].String(),
		Type: args[1].String(),
		Size: int64(args[2].Int()),
		Data: []byte(args[3].String()),
	}

	doc, err := transferSvc.ParseImport(f)
	if err != nil {
		return errorResult("parseImportFile: " + err.Error())
	}

	bytes, _ := json.Marshal(doc)
	return string(bytes)
}

// importData applies a previously parsed document to the store.
// Args: [name string, mimeType string, size int, content string, strategy string]
func importData(this js.Value, args []js.Value) interface{} {
	if len(args) < 5 {
		return errorResult("importData requires 5 args: name, mimeType, size, content, strategy")
	}
	if transferSvc == nil || application == nil {
		return errorResult("not initialized")
	}

	f := transfer.File{
		Name: args[0].String(),
		Type: args[1].String(),
		Size: int64(args[2].Int()),
		Data: []byte(args[3].String()),
	}

	doc, err := transferSvc.ParseImport(f)
	if err != nil {
		return errorResult("importData: " + err.Error())
	}

	if err := transferSvc.Merge(doc, transfer.Strategy(args[4].String())); err != nil {
		return errorResult("importData: " + err.Error())
	}

	// Imported records replace in-memory state
	if err := application.ReloadFromStore(); err != nil {
		return errorResult("importData: reload: " + err.Error())
	}

	fmt.Printf("[GoCard] imported %d folders, %d cards\n", len(doc.Folders), len(doc.Cards))
	return stateResult()
}

// =============================================================================
// Search API
// =============================================================================

// doSearch matches a free-text query against card fronts and backs.
// Args: [query string]
// Returns: JSON array of {card, terms} ranked by distinct term hits
func doSearch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("search requires 1 arg: query")
	}
	if application == nil {
		return errorResult("not initialized")
	}

	// Rebuild only when cards changed since the last build
	seq := application.State().CardRefreshSeq
	if searchIdx == nil || searchIdxSeq != seq {
		cards, err := application.Cards("")
		if err != nil {
			return errorResult("search: " + err.Error())
		}
		idx, err := search.Build(cards)
		if err != nil {
			return errorResult("search: index: " + err.Error())
		}
		searchIdx = idx
		searchIdxSeq = seq
	}

	results := searchIdx.Find(args[0].String())
	bytes, _ := json.Marshal(results)
	return string(bytes)
}

// =============================================================================
// Helpers
// =============================================================================

// stateResult serializes the current UI state
func stateResult() interface{} {
	bytes, _ := json.Marshal(application.State())
	return string(bytes)
}

// errorResult creates an error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
