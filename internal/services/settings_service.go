package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/pkg/cache"
	"acai-delivery-backend/pkg/events"
	"acai-delivery-backend/pkg/messaging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const settingsCacheKey = "settings:suggestions"

// SettingsService owns the storefront suggestion switches and broadcasts
// every change, locally on the bus and to other instances through Kafka.
type SettingsService struct {
	repo      repositories.SettingsRepository
	cache     *cache.RedisCache
	bus       *events.Bus
	publisher EventPublisher
	topic     string
	origin    string
	log       *zap.Logger

	mu   sync.RWMutex
	last *models.SuggestionSettings
}

func NewSettingsService(
	repo repositories.SettingsRepository,
	cache *cache.RedisCache,
	bus *events.Bus,
	publisher EventPublisher,
	topic string,
	log *zap.Logger,
) *SettingsService {
	return &SettingsService{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		publisher: publisher,
		topic:     topic,
		origin:    uuid.NewString(),
		log:       log,
	}
}

// Load returns the stored settings. When the store cannot be read it falls
// back to the last settings seen in Redis, then in memory, then to the
// defaults.
func (s *SettingsService) Load(ctx context.Context) models.SuggestionSettings {
	stored, err := s.repo.Get(ctx)
	if err == nil {
		settings := models.SuggestionSettings{
			Enabled:    stored.AISuggestionsEnabled,
			ShowInCart: stored.ShowInCart,
		}
		s.remember(ctx, settings)
		return settings
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return models.DefaultSuggestionSettings()
	}

	s.log.Warn("settings store unavailable, using last known settings", zap.Error(err))

	var cached models.SuggestionSettings
	if cacheErr := s.cache.Get(ctx, settingsCacheKey, &cached); cacheErr == nil {
		s.setLast(cached)
		return cached
	} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		s.log.Warn("settings cache unavailable", zap.Error(cacheErr))
	}

	if last, ok := s.lastKnown(); ok {
		return last
	}
	return models.DefaultSuggestionSettings()
}

// Update persists new settings and broadcasts them.
func (s *SettingsService) Update(ctx context.Context, settings models.SuggestionSettings) (models.SuggestionSettings, error) {
	now := time.Now()
	row := &models.OrderSettings{
		ID:                   models.DefaultSettingsID,
		AISuggestionsEnabled: settings.Enabled,
		ShowInCart:           settings.ShowInCart,
		UpdatedAt:            now,
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return models.SuggestionSettings{}, fmt.Errorf("save settings: %w", err)
	}

	s.remember(ctx, settings)
	s.bus.Publish(events.TopicSettingsChanged, settings)
	s.log.Info("suggestion settings updated",
		zap.Bool("enabled", settings.Enabled),
		zap.Bool("show_in_cart", settings.ShowInCart))

	if s.publisher != nil {
		event := messaging.SettingsChangedEvent{
			Origin:     s.origin,
			Enabled:    settings.Enabled,
			ShowInCart: settings.ShowInCart,
			ChangedAt:  now,
		}
		if err := s.publisher.SendMessage(ctx, s.topic, models.DefaultSettingsID, event); err != nil {
			s.log.Error("settings broadcast failed", zap.String("topic", s.topic), zap.Error(err))
		}
	}
	return settings, nil
}

// HandleRemoteChange applies a settings change broadcast by another
// instance. Messages this instance sent are ignored.
func (s *SettingsService) HandleRemoteChange(ctx context.Context, payload []byte) error {
	var event messaging.SettingsChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode settings event: %w", err)
	}
	if event.Origin == s.origin {
		return nil
	}

	settings := models.SuggestionSettings{Enabled: event.Enabled, ShowInCart: event.ShowInCart}
	s.setLast(settings)
	s.bus.Publish(events.TopicSettingsChanged, settings)
	s.log.Info("suggestion settings changed remotely", zap.String("origin", event.Origin))
	return nil
}

func (s *SettingsService) remember(ctx context.Context, settings models.SuggestionSettings) {
	s.setLast(settings)
	if err := s.cache.Set(ctx, settingsCacheKey, settings, 0); err != nil {
		s.log.Warn("settings cache write failed", zap.Error(err))
	}
}

func (s *SettingsService) setLast(settings models.SuggestionSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &settings
}

func (s *SettingsService) lastKnown() (models.SuggestionSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.SuggestionSettings{}, false
	}
	return *s.last, true
}
