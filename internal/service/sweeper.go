package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Таймаут одного прохода очистки
const sweepTimeout = 30 * time.Second

// Sweeper периодически запускает очистку истёкших ссылок.
// Сам вызов идемпотентен, поэтому наложение проходов (например,
// при ручном запуске через админку во время планового) безопасно
// и взаимного исключения не требует.
type Sweeper struct {
	lifecycle Lifecycle
	logger    *zap.Logger
	interval  time.Duration
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSweeper(lifecycle Lifecycle, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		lifecycle: lifecycle,
		logger:    logger,
		interval:  interval,
	}
}

// Start запускает фоновую горутину очистки
func (s *Sweeper) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("Запуск фоновой очистки истёкших ссылок",
		zap.Duration("interval", s.interval),
	)

	s.wg.Add(1)
	go s.run()
}

// Stop корректно останавливает фоновую очистку
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Фоновая очистка остановлена")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	count, err := s.lifecycle.SweepExpired(ctx)
	if err != nil {
		// Следующий проход приберёт то, что не успел этот
		s.logger.Error("Очистка истёкших ссылок завершилась ошибкой", zap.Error(err))
		return
	}

	s.logger.Debug("Проход очистки завершён", zap.Int64("removed", count))
}
