package state

import "github.com/cardfolio/gocard/internal/store"

// ActionType enumerates every reducer transition.
type ActionType string

const (
	ActionSetFolders       ActionType = "SET_FOLDERS"
	ActionSetCurrentFolder ActionType = "SET_CURRENT_FOLDER"
	ActionSetAppView       ActionType = "SET_APP_VIEW"
	ActionSetViewMode      ActionType = "SET_VIEW_MODE"
	ActionCreateFolder     ActionType = "CREATE_FOLDER"
	ActionUpdateFolder     ActionType = "UPDATE_FOLDER"
	ActionDeleteFolder     ActionType = "DELETE_FOLDER"
	ActionCreateCard       ActionType = "CREATE_CARD"
	ActionUpdateCard       ActionType = "UPDATE_CARD"
	ActionDeleteCard       ActionType = "DELETE_CARD"
	ActionUpdateCardStats  ActionType = "UPDATE_CARD_STATS"
	ActionRefreshCards     ActionType = "REFRESH_CARDS"
)

// Action is the tagged payload union consumed by Reduce. Only the
// fields relevant to Type are read; the rest stay zero.
type Action struct {
	Type ActionType

	Folders  []store.Folder // SET_FOLDERS
	Folder   *store.Folder  // CREATE_FOLDER
	FolderID string         // SET_CURRENT_FOLDER, UPDATE/DELETE_FOLDER, card actions
	Name     string         // UPDATE_FOLDER
	CardID   string         // DELETE_CARD
	AppView  AppView        // SET_APP_VIEW
	ViewMode ViewMode       // SET_VIEW_MODE
}

// Payload constructors. Callers materialize any time-dependent values
// before building the action.

func SetFolders(folders []store.Folder) Action {
	return Action{Type: ActionSetFolders, Folders: folders}
}

func SetCurrentFolder(id string) Action {
	return Action{Type: ActionSetCurrentFolder, FolderID: id}
}

func SetAppView(v AppView) Action {
	return Action{Type: ActionSetAppView, AppView: v}
}

func SetViewMode(m ViewMode) Action {
	return Action{Type: ActionSetViewMode, ViewMode: m}
}

func CreateFolder(f store.Folder) Action {
	return Action{Type: ActionCreateFolder, Folder: &f}
}

func UpdateFolder(id, name string) Action {
	return Action{Type: ActionUpdateFolder, FolderID: id, Name: name}
}

func DeleteFolder(id string) Action {
	return Action{Type: ActionDeleteFolder, FolderID: id}
}

func CreateCard(folderID string) Action {
	return Action{Type: ActionCreateCard, FolderID: folderID}
}

func UpdateCard(folderID string) Action {
	return Action{Type: ActionUpdateCard, FolderID: folderID}
}

func DeleteCard(folderID, cardID string) Action {
	return Action{Type: ActionDeleteCard, FolderID: folderID, CardID: cardID}
}

func UpdateCardStats(folderID string) Action {
	return Action{Type: ActionUpdateCardStats, FolderID: folderID}
}

func RefreshCards() Action {
	return Action{Type: ActionRefreshCards}
}
