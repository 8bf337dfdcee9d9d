package service

import (
	"context"

	"dreamio/internal/models"
	"dreamio/internal/repository"
)

// AdminStats feeds the admin dashboard charts.
type AdminStats struct {
	UsersByRole         map[models.Role]int64         `json:"usersByRole"`
	TotalUsers          int64                         `json:"totalUsers"`
	TotalEvents         int64                         `json:"totalEvents"`
	LiveStreamsByStatus map[models.StreamStatus]int64 `json:"liveStreamsByStatus"`
}

type StatsService struct {
	userRepo   repository.UserRepository
	eventRepo  repository.EventRepository
	streamRepo repository.LiveStreamRepository
}

func NewStatsService(userRepo repository.UserRepository, eventRepo repository.EventRepository, streamRepo repository.LiveStreamRepository) *StatsService {
	return &StatsService{userRepo: userRepo, eventRepo: eventRepo, streamRepo: streamRepo}
}

func (s *StatsService) Collect(ctx context.Context) (*AdminStats, error) {
	byRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.streamRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{
		UsersByRole:         byRole,
		TotalEvents:         events,
		LiveStreamsByStatus: byStatus,
	}
	for _, n := range byRole {
		stats.TotalUsers += n
	}
	return stats, nil
}
