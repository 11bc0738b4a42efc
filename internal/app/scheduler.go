package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/policy"
	"github.com/Freeeeeet/clinic_scheduler/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	batch    *service.BatchGenerator
	loc      *time.Location
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик. Развёртка всегда считается в
// фиксированном часовом поясе клиники.
func NewScheduler(batch *service.BatchGenerator, loc *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		batch:    batch,
		loc:      loc,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runWeeklyGenerationTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runWeeklyGenerationTask раз в час проверяет не началась ли новая неделя
// и запускает развёртку при смене недели. Первый запуск — сразу при старте:
// развёртка идемпотентна, догонять безопасно. Неделя считается закрытой
// только после успешной развёртки: после сбоя следующий тик повторит проход.
func (s *Scheduler) runWeeklyGenerationTask(ctx context.Context) {
	var lastWeek model.WeekRange

	if week, err := s.generate(ctx); err == nil {
		lastWeek = week
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().In(s.loc)
			if policy.ResolveWeek(now).Equal(lastWeek) {
				continue
			}
			week, err := s.generate(ctx)
			if err != nil {
				continue
			}
			lastWeek = week
		case <-s.stopChan:
			s.logger.Info("Weekly generation task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Weekly generation task cancelled")
			return
		}
	}
}

// generate запускает оба прохода развёртки для текущей недели. Ошибка
// означает что неделя не развёрнута до конца и проход нужно повторить.
func (s *Scheduler) generate(ctx context.Context) (model.WeekRange, error) {
	now := time.Now().In(s.loc)
	week := policy.ResolveWeek(now)

	s.logger.Info("Starting weekly clinic generation",
		zap.Time("week_start", week.Start))

	if err := s.batch.GenerateWeeklySessions(ctx, now); err != nil {
		s.logger.Error("Failed to generate weekly sessions", zap.Error(err))
		return week, err
	}

	if err := s.batch.GenerateWeeklyAttendances(ctx, now); err != nil {
		s.logger.Error("Failed to generate weekly attendances", zap.Error(err))
		return week, err
	}

	s.logger.Info("Weekly clinic generation completed successfully")
	return week, nil
}
