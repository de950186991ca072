package app

import (
	"context"
	"fmt"

	"github.com/nutrilens/companion/internal/app/domain/meal"
	"github.com/nutrilens/companion/internal/app/services/checklist"
	"github.com/nutrilens/companion/internal/app/services/profiles"
	visionsvc "github.com/nutrilens/companion/internal/app/services/vision"
	"github.com/nutrilens/companion/internal/app/storage"
	"github.com/nutrilens/companion/internal/app/storage/memory"
	"github.com/nutrilens/companion/internal/app/system"
	"github.com/nutrilens/companion/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Profiles storage.ProfileStore
	Session  storage.SessionStore
}

// Options carries the non-store collaborators. A zero Catalog falls back to
// the built-in planner; a nil Assessor leaves assessments unconfigured.
type Options struct {
	Catalog  meal.Catalog
	Assessor visionsvc.Assessor
	Notifier checklist.Notifier
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Profiles  *profiles.Service
	Checklist *checklist.Service
	Vision    *visionsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.Session == nil {
		stores.Session = mem
	}

	if len(opts.Catalog.Sections) == 0 {
		opts.Catalog = meal.Default()
	}

	manager := system.NewManager()

	profileService := profiles.New(stores.Profiles, stores.Session, log)
	checklistService := checklist.New(opts.Catalog, opts.Notifier, log)

	var visionService *visionsvc.Service
	if opts.Assessor != nil {
		visionService = visionsvc.New(opts.Assessor, log)
	} else {
		log.Warn("no vision assessor configured; assessments disabled")
	}

	for _, name := range []string{"profiles", "checklist"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Profiles:  profileService,
		Checklist: checklistService,
		Vision:    visionService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
