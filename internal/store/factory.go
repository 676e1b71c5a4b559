package store

import (
	"avatarlab.app/studio/core/db"
)

type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Users() UserStore {
	return &userStore{q: s.q}
}

func (s *Stores) Sessions() SessionStore {
	return &sessionStore{q: s.q}
}

func (s *Stores) Characters() CharacterStore {
	return &characterStore{q: s.q}
}

func (s *Stores) Folders() FolderStore {
	return &folderStore{q: s.q}
}

func (s *Stores) Images() ImageStore {
	return &imageStore{q: s.q}
}

func (s *Stores) Jobs() JobStore {
	return &jobStore{q: s.q}
}
