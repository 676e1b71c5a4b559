package view

import "avatarlab.app/studio/internal/model"

// FolderSelection narrows a view to a folder scope. The zero value means
// "any folder". Unfiled selects entities with no folder; ID selects one
// specific folder.
type FolderSelection struct {
	Unfiled bool
	ID      *int64
}

func AnyFolder() FolderSelection {
	return FolderSelection{}
}

func UnfiledFolder() FolderSelection {
	return FolderSelection{Unfiled: true}
}

func InFolder(id int64) FolderSelection {
	return FolderSelection{ID: &id}
}

func (f FolderSelection) Any() bool {
	return !f.Unfiled && f.ID == nil
}

// Filter is the predicate describing which images belong in the currently
// displayed collection. It is pure: both the initial load query and the
// reconciliation engine evaluate membership with the same rules.
type Filter struct {
	// CharacterID, when set, restricts the view to one character.
	CharacterID *int64
	// Folder narrows the folder scope. With a character selected, Unfiled
	// means "images of that character not in any folder". Without one,
	// Unfiled additionally requires no character ("library root").
	Folder FolderSelection
	// FavoritesOnly is an independent AND condition on the favorite flag.
	FavoritesOnly bool
}

// Matches reports whether the image belongs in the filtered view.
func (f Filter) Matches(img model.Image) bool {
	if f.FavoritesOnly && !img.Favorite {
		return false
	}

	if f.CharacterID != nil {
		if img.CharacterID == nil || *img.CharacterID != *f.CharacterID {
			return false
		}
		switch {
		case f.Folder.Unfiled:
			return img.FolderID == nil
		case f.Folder.ID != nil:
			return img.FolderID != nil && *img.FolderID == *f.Folder.ID
		default:
			// Any folder under the selected character matches.
			return true
		}
	}

	switch {
	case f.Folder.Unfiled:
		// Library root: no folder and no character.
		return img.FolderID == nil && img.CharacterID == nil
	case f.Folder.ID != nil:
		return img.FolderID != nil && *img.FolderID == *f.Folder.ID
	default:
		// Unconstrained ("all images").
		return true
	}
}
