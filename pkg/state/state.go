// Package state holds the in-memory application state and the pure
// reducer that advances it. The reducer does no I/O, reads no clock,
// and never panics; timestamps arrive already materialized in action
// payloads so transitions stay deterministic.
package state

import "github.com/cardfolio/gocard/internal/store"

// AppView is the active screen.
type AppView string

const (
	ViewFolders AppView = "folders"
	ViewCards   AppView = "cards"
)

// ViewMode is how cards are reviewed: a flat list or sequential
// one-at-a-time focus mode.
type ViewMode string

const (
	ModeList  ViewMode = "list"
	ModeFocus ViewMode = "focus"
)

// State is the reducer-owned application state. Card content and
// statistics are not mirrored here - only the denormalized CardCount
// travels with each folder; card lists are fetched from the store per
// folder on demand.
type State struct {
	Folders []store.Folder `json:"folders"`

	// CurrentFolderID is empty when no folder is open. When set, it
	// always names a folder present in Folders; the effect layer
	// clears it when that folder is deleted.
	CurrentFolderID string `json:"currentFolderId"`

	AppView  AppView  `json:"appView"`
	ViewMode ViewMode `json:"viewMode"`

	// CardRefreshSeq bumps whenever the card set or card content
	// changed, telling the UI to re-fetch the open card list.
	CardRefreshSeq int `json:"cardRefreshSeq"`
}

// Initial returns the state before hydration: no folders, folder list
// screen, list review mode.
func Initial() State {
	return State{
		AppView:  ViewFolders,
		ViewMode: ModeList,
	}
}

// CurrentFolder resolves CurrentFolderID against Folders. Returns nil
// when no folder is open or the id is stale.
func (s State) CurrentFolder() *store.Folder {
	if s.CurrentFolderID == "" {
		return nil
	}
	for i := range s.Folders {
		if s.Folders[i].ID == s.CurrentFolderID {
			f := s.Folders[i]
			return &f
		}
	}
	return nil
}
