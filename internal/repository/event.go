package repository

import (
	"context"
	"errors"

	"dreamio/internal/cache"
	"dreamio/internal/models"

	"gorm.io/gorm"
)

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context) ([]models.Event, error)
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	// Update writes the event. A positive expectedVersion makes the write
	// conditional on the stored version.
	Update(ctx context.Context, event *models.Event, expectedVersion int) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a new EventRepository implementation.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) List(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := cache.Aside(ctx, cache.EventListKey, &events, cache.EventListTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Creator", creatorColumns).
			Order("date DESC").
			Find(&events).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Preload("Creator", creatorColumns).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Event", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.Version == 0 {
		event.Version = 1
	}
	if err := r.db.WithContext(ctx).Omit("Creator").Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateEvents(ctx)
	return nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.Event, expectedVersion int) error {
	if err := saveVersioned(ctx, r.db, "events", "Event", event.ID, event, &event.Version, expectedVersion); err != nil {
		return err
	}
	cache.InvalidateEvents(ctx)
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Event{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Event", id)
	}
	cache.InvalidateEvents(ctx)
	return nil
}

func (r *eventRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Event{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
