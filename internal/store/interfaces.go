package store

import (
	"context"
	"errors"
	"time"

	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/view"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertByWorkOSID(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// SessionStore defines the contract for session data access
type SessionStore interface {
	GetValid(ctx context.Context, id int64) (*model.Session, error) // checks expiry
	Create(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id int64) error
	DeleteByUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) error
}

// CharacterStore defines the contract for character data access.
// All reads and writes are scoped to the owning user.
type CharacterStore interface {
	GetOwned(ctx context.Context, userID, id int64) (*model.Character, error)
	Create(ctx context.Context, character *model.Character) error
	Update(ctx context.Context, character *model.Character) error
	Delete(ctx context.Context, userID, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.Character, error)
}

// FolderStore defines the contract for folder data access
type FolderStore interface {
	GetOwned(ctx context.Context, userID, id int64) (*model.Folder, error)
	Create(ctx context.Context, folder *model.Folder) error
	Rename(ctx context.Context, userID, id int64, name string) (*model.Folder, error)
	Delete(ctx context.Context, userID, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.Folder, error)
}

// ImageStore defines the contract for image data access. List applies the
// same view filter the reconciliation engine uses, so an initial load and the
// event stream agree on membership.
type ImageStore interface {
	GetOwned(ctx context.Context, userID, id int64) (*model.Image, error)
	Create(ctx context.Context, image *model.Image) error
	SetFavorite(ctx context.Context, userID, id int64, favorite bool) (*model.Image, error)
	Move(ctx context.Context, userID, id int64, folderID *int64) (*model.Image, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error)
}

// JobStore defines the contract for generation job data access.
//
// CompletePending and FailPending are the only transitions out of pending,
// and both are conditional single-statement updates: concurrent duplicate
// webhook callbacks race on the status column and exactly one wins.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	GetOwned(ctx context.Context, userID, id int64) (*model.Job, error)
	ListByUser(ctx context.Context, userID int64, limit int32) ([]model.Job, error)

	// AttachExternalID records the worker's job identifier, scoped to the
	// owner. Last write wins; returns ErrNotFound if the token is unknown
	// for this owner.
	AttachExternalID(ctx context.Context, userID int64, token, externalID string) error

	// CompletePending transitions the matching pending job to completed.
	// Returns ErrNotFound when no pending job matches, which callers treat
	// as "already terminated or never existed" (a no-op, not an error).
	CompletePending(ctx context.Context, token, externalID string, resultImageID int64, completedAt time.Time) (*model.Job, error)

	// FailPending transitions the matching pending job to failed.
	FailPending(ctx context.Context, token, externalID, errMsg string, completedAt time.Time) (*model.Job, error)

	// FailExpired marks every pending job created before cutoff as failed
	// and returns the jobs it transitioned.
	FailExpired(ctx context.Context, cutoff time.Time, reason string) ([]model.Job, error)
}
