package sync

import (
	"feedsync/feature/account"
	"feedsync/feature/feedbin"
	"feedsync/feature/feeds"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the sync feature with the Feedbin provider registered.
func NewFeature(
	accounts *account.Service,
	store *feeds.Store,
	registry *feedbin.Registry,
	cfg feedbin.Config,
	logger *zap.Logger,
) *Feature {
	svc := NewService(accounts, logger)
	svc.Register(NewFeedbinProvider(accounts, store, registry, cfg, logger))

	h := NewHandler(svc, store, logger)
	return &Feature{service: svc, handler: h}
}

// Service exposes the sync service for the scheduler and CLI.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "sync"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
