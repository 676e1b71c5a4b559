package service

import (
	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/storage"
	"avatarlab.app/studio/internal/store"
)

type Services struct {
	stores     *store.Stores
	txRunner   TxRunner
	objects    storage.ObjectStore
	bus        bus.Client
	enhancer   PromptEnhancer
	dispatcher Dispatcher
	cfg        config.Config
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	objects storage.ObjectStore,
	busClient bus.Client,
	enhancer PromptEnhancer,
	dispatcher Dispatcher,
	cfg config.Config,
) *Services {
	return &Services{
		stores:     stores,
		txRunner:   txRunner,
		objects:    objects,
		bus:        busClient,
		enhancer:   enhancer,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.stores.Users(), s.stores.Sessions(), s.cfg.WorkOS)
}

func (s *Services) Jobs() JobService {
	return NewJobService(s.stores.Jobs())
}

func (s *Services) Completion() CompletionService {
	return NewCompletionService(s.txRunner, s.objects, s.bus)
}

func (s *Services) Generation() GenerationService {
	return NewGenerationService(
		s.Jobs(),
		s.stores.Jobs(),
		s.stores.Characters(),
		s.stores.Folders(),
		s.enhancer,
		s.dispatcher,
		s.bus,
		s.cfg.Generator,
	)
}

func (s *Services) Images() ImageService {
	return NewImageService(s.stores.Images(), s.stores.Folders(), s.objects, s.bus)
}

func (s *Services) Folders() FolderService {
	return NewFolderService(s.stores.Folders(), s.stores.Characters(), s.bus)
}

func (s *Services) Characters() CharacterService {
	return NewCharacterService(s.stores.Characters(), s.bus)
}

// Bus exposes the event transport for consumers that subscribe rather than
// publish, like the realtime stream handler.
func (s *Services) Bus() bus.Client {
	return s.bus
}

func (s *Services) Reaper() *JobReaper {
	return NewJobReaper(s.stores.Jobs(), s.bus, s.cfg.Jobs)
}
