package service

import (
	"context"

	"github.com/personnel-actions-api/internal/auth"
	"github.com/personnel-actions-api/internal/catalog"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/dto"
	"github.com/personnel-actions-api/internal/repository"
)

// StatsService определяет интерфейс статистики для панели управления
type StatsService interface {
	Overview(ctx context.Context, actor domain.Actor) (*dto.ActionStats, error)
}

type statsService struct {
	actionRepo repository.ActionRepository
	guard      *auth.Guard
}

// NewStatsService создаёт новый экземпляр сервиса
func NewStatsService(actionRepo repository.ActionRepository, guard *auth.Guard) StatsService {
	return &statsService{actionRepo: actionRepo, guard: guard}
}

func (s *statsService) Overview(ctx context.Context, actor domain.Actor) (*dto.ActionStats, error) {
	if !s.guard.CanViewAll(actor) {
		return nil, domain.ErrNotAuthorized
	}

	counts, err := s.actionRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &dto.ActionStats{
		Total:      counts.Total,
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	for status, count := range counts.ByStatus {
		stats.ByStatus[string(status)] = count
	}
	stats.PendingQueue = stats.ByStatus[string(domain.StatusPending)]

	// Категория не хранится в БД: она восстанавливается из каталога
	for typeCode, count := range counts.ByType {
		def, ok := catalog.Lookup(typeCode)
		if !ok {
			continue
		}
		stats.ByCategory[string(def.Category)] += count
	}

	return stats, nil
}
