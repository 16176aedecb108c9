package state

import "github.com/cardfolio/gocard/internal/store"

// Reduce maps (state, action) to the next state. Pure: the input state
// is never mutated, unknown or invalid actions return it unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSetFolders:
		s.Folders = cloneFolders(a.Folders)
		return s

	case ActionSetCurrentFolder:
		s.CurrentFolderID = a.FolderID
		return s

	case ActionSetAppView:
		s.AppView = a.AppView
		return s

	case ActionSetViewMode:
		s.ViewMode = a.ViewMode
		return s

	case ActionCreateFolder:
		if a.Folder == nil {
			return s
		}
		next := cloneFolders(s.Folders)
		s.Folders = append(next, *a.Folder)
		return s

	case ActionUpdateFolder:
		next := cloneFolders(s.Folders)
		for i := range next {
			if next[i].ID == a.FolderID {
				next[i].Name = a.Name
				break
			}
		}
		s.Folders = next
		return s

	case ActionDeleteFolder:
		next := make([]store.Folder, 0, len(s.Folders))
		for _, f := range s.Folders {
			if f.ID != a.FolderID {
				next = append(next, f)
			}
		}
		s.Folders = next
		return s

	case ActionCreateCard:
		s.Folders = bumpCount(s.Folders, a.FolderID, 1)
		s.CardRefreshSeq++
		return s

	case ActionDeleteCard:
		s.Folders = bumpCount(s.Folders, a.FolderID, -1)
		s.CardRefreshSeq++
		return s

	case ActionUpdateCard, ActionUpdateCardStats:
		// Card content and stats live in the store, not in this state;
		// the folder list is untouched.
		return s

	case ActionRefreshCards:
		s.CardRefreshSeq++
		return s

	default:
		return s
	}
}

func cloneFolders(folders []store.Folder) []store.Folder {
	if folders == nil {
		return nil
	}
	next := make([]store.Folder, len(folders))
	copy(next, folders)
	return next
}

// bumpCount adjusts a folder's CardCount, floored at zero. No-op when
// the folder is absent.
func bumpCount(folders []store.Folder, id string, delta int) []store.Folder {
	next := cloneFolders(folders)
	for i := range next {
		if next[i].ID == id {
			next[i].CardCount += delta
			if next[i].CardCount < 0 {
				next[i].CardCount = 0
			}
			break
		}
	}
	return next
}
