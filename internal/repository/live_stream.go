package repository

import (
	"context"
	"errors"

	"dreamio/internal/cache"
	"dreamio/internal/models"

	"gorm.io/gorm"
)

// LiveStreamRepository defines persistence operations for live streams.
type LiveStreamRepository interface {
	ListPublic(ctx context.Context) ([]models.LiveStream, error)
	ListCurrent(ctx context.Context) ([]models.LiveStream, error)
	ListByUser(ctx context.Context, userID uint) ([]models.LiveStream, error)
	GetByID(ctx context.Context, id uint) (*models.LiveStream, error)
	Create(ctx context.Context, stream *models.LiveStream) error
	Update(ctx context.Context, stream *models.LiveStream, expectedVersion int) error
	Delete(ctx context.Context, id uint) error
	SetViewerCount(ctx context.Context, id uint, count int) (*models.LiveStream, error)
	SetLikeCount(ctx context.Context, id uint, count int) (*models.LiveStream, error)
	IncrementViewerCount(ctx context.Context, id uint) (int, error)
	DecrementViewerCount(ctx context.Context, id uint) (int, error)
	CountByStatus(ctx context.Context) (map[models.StreamStatus]int64, error)
}

type liveStreamRepository struct {
	db *gorm.DB
}

// NewLiveStreamRepository returns a new LiveStreamRepository implementation.
func NewLiveStreamRepository(db *gorm.DB) LiveStreamRepository {
	return &liveStreamRepository{db: db}
}

func (r *liveStreamRepository) ListPublic(ctx context.Context) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	err := cache.Aside(ctx, cache.LiveStreamListKey, &streams, cache.StreamListTTL, func() error {
		if err := r.db.WithContext(ctx).
			Where("is_public = ?", true).
			Preload("Streamer", creatorColumns).
			Order("created_at DESC").
			Find(&streams).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return streams, nil
}

func (r *liveStreamRepository) ListCurrent(ctx context.Context) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	err := cache.Aside(ctx, cache.LiveStreamCurrentKey, &streams, cache.StreamListTTL, func() error {
		if err := r.db.WithContext(ctx).
			Where("is_public = ? AND is_live = ?", true, true).
			Preload("Streamer", creatorColumns).
			Order("start_time DESC").
			Find(&streams).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return streams, nil
}

func (r *liveStreamRepository) ListByUser(ctx context.Context, userID uint) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	if err := r.db.WithContext(ctx).
		Where("streamer_id = ?", userID).
		Preload("Streamer", creatorColumns).
		Order("created_at DESC").
		Find(&streams).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return streams, nil
}

func (r *liveStreamRepository) GetByID(ctx context.Context, id uint) (*models.LiveStream, error) {
	var stream models.LiveStream
	if err := r.db.WithContext(ctx).Preload("Streamer", creatorColumns).First(&stream, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Live stream", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &stream, nil
}

func (r *liveStreamRepository) Create(ctx context.Context, stream *models.LiveStream) error {
	if stream.Version == 0 {
		stream.Version = 1
	}
	if stream.Tags == nil {
		stream.Tags = []string{}
	}
	if err := r.db.WithContext(ctx).Omit("Streamer").Create(stream).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateLiveStreams(ctx)
	return nil
}

func (r *liveStreamRepository) Update(ctx context.Context, stream *models.LiveStream, expectedVersion int) error {
	// Counters belong to viewers and likes; a metadata save must not roll
	// them back to the values read before it.
	if err := saveVersioned(ctx, r.db, "live_streams", "Live stream", stream.ID, stream, &stream.Version, expectedVersion,
		"viewer_count", "like_count"); err != nil {
		return err
	}
	cache.InvalidateLiveStreams(ctx)

	var counters struct {
		ViewerCount int
		LikeCount   int
	}
	if err := r.db.WithContext(ctx).Model(&models.LiveStream{}).
		Select("viewer_count", "like_count").
		Where("id = ?", stream.ID).
		Scan(&counters).Error; err != nil {
		return models.NewInternalError(err)
	}
	stream.ViewerCount = counters.ViewerCount
	stream.LikeCount = counters.LikeCount
	return nil
}

func (r *liveStreamRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.LiveStream{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Live stream", id)
	}
	cache.InvalidateLiveStreams(ctx)
	return nil
}

func (r *liveStreamRepository) setCounter(ctx context.Context, id uint, column string, count int) (*models.LiveStream, error) {
	if count < 0 {
		count = 0
	}
	res := r.db.WithContext(ctx).Model(&models.LiveStream{}).Where("id = ?", id).UpdateColumn(column, count)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Live stream", id)
	}
	cache.InvalidateLiveStreams(ctx)
	return r.GetByID(ctx, id)
}

func (r *liveStreamRepository) SetViewerCount(ctx context.Context, id uint, count int) (*models.LiveStream, error) {
	return r.setCounter(ctx, id, "viewer_count", count)
}

func (r *liveStreamRepository) SetLikeCount(ctx context.Context, id uint, count int) (*models.LiveStream, error) {
	return r.setCounter(ctx, id, "like_count", count)
}

func (r *liveStreamRepository) viewerCount(ctx context.Context, id uint) (int, error) {
	var row struct{ ViewerCount int }
	if err := r.db.WithContext(ctx).Table("live_streams").Select("viewer_count").Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Live stream", id)
		}
		return 0, models.NewInternalError(err)
	}
	return row.ViewerCount, nil
}

// IncrementViewerCount adds one viewer and returns the new count.
func (r *liveStreamRepository) IncrementViewerCount(ctx context.Context, id uint) (int, error) {
	if err := r.db.WithContext(ctx).Model(&models.LiveStream{}).Where("id = ?", id).
		UpdateColumn("viewer_count", gorm.Expr("viewer_count + 1")).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	cache.InvalidateLiveStreams(ctx)
	return r.viewerCount(ctx, id)
}

// DecrementViewerCount removes one viewer, never going below zero.
func (r *liveStreamRepository) DecrementViewerCount(ctx context.Context, id uint) (int, error) {
	if err := r.db.WithContext(ctx).Model(&models.LiveStream{}).Where("id = ? AND viewer_count > 0", id).
		UpdateColumn("viewer_count", gorm.Expr("viewer_count - 1")).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	cache.InvalidateLiveStreams(ctx)
	return r.viewerCount(ctx, id)
}

func (r *liveStreamRepository) CountByStatus(ctx context.Context) (map[models.StreamStatus]int64, error) {
	var rows []struct {
		Status models.StreamStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.LiveStream{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	counts := map[models.StreamStatus]int64{
		models.StreamScheduled: 0,
		models.StreamLive:      0,
		models.StreamEnded:     0,
		models.StreamCancelled: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
