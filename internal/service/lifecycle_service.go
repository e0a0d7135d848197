package service

import (
	"classroom_backend/internal/grading"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"classroom_backend/pkg/logger"
	"classroom_backend/pkg/monitoring"
	"classroom_backend/pkg/tracing"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LifecycleService 周期性地根据时间窗口推进测评状态。
// 每次扫描都从存储重新读取，扫描之间不保留任何状态。
type LifecycleService struct {
	Store   AssessmentStore
	Lock    Locker
	Now     Clock
	LockTTL time.Duration

	workers atomic.Int32
}

func NewLifecycleService(store AssessmentStore, lock Locker, now Clock, workers int, lockTTL time.Duration) *LifecycleService {
	if now == nil {
		now = time.Now
	}
	s := &LifecycleService{Store: store, Lock: lock, Now: now, LockTTL: lockTTL}
	s.SetWorkers(workers)
	return s
}

// SetWorkers 调整单次扫描的并发度，支持配置热更新
func (s *LifecycleService) SetWorkers(n int) {
	if n <= 0 {
		n = 1
	}
	s.workers.Store(int32(n))
}

func (s *LifecycleService) Workers() int {
	return int(s.workers.Load())
}

// RunLifecycleSweep 读取全部 ASSIGNED/ACTIVE 测评，按 now 计算迁移并逐个条件写入。
// 单个测评写入失败只记录日志，留待下一次扫描重试。返回本次实际迁移的数量。
func (s *LifecycleService) RunLifecycleSweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracing.Tracer.Start(ctx, "lifecycle.sweep")
	defer span.End()

	started := time.Now()
	sweepID := uuid.NewString()[:8]
	log := logger.Sweep(sweepID)
	span.SetAttributes(attribute.String("sweep.id", sweepID))
	defer func() {
		monitoring.SweepDuration.Observe(time.Since(started).Seconds())
	}()

	candidates, err := s.Store.FindByStatuses(ctx, model.StatusAssigned, model.StatusActive)
	if err != nil {
		monitoring.SweepRuns.WithLabelValues("error").Inc()
		return 0, err
	}

	var transitioned, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.Workers())

	for i := range candidates {
		a := candidates[i]
		next, ok := grading.NextStatus(a.Status, a.StartTime, a.EndTime, now)
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := s.Store.Transition(ctx, a.ID, a.Status, a.Version, next); err != nil {
				failed.Add(1)
				monitoring.SweepFailures.Inc()
				log.Warn("lifecycle transition failed, will retry next tick",
					zap.Uint("assessment_id", a.ID),
					zap.String("from", string(a.Status)),
					zap.String("to", string(next)),
					zap.Bool("conflict", errors.Is(err, util.ErrConflict)),
					zap.Error(err))
				return nil
			}
			transitioned.Add(1)
			monitoring.SweepTransitions.WithLabelValues(string(next)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	n := int(transitioned.Load())
	span.SetAttributes(
		attribute.Int("sweep.visited", len(candidates)),
		attribute.Int("sweep.transitioned", n),
		attribute.Int64("sweep.failed", failed.Load()),
	)
	monitoring.SweepRuns.WithLabelValues("ok").Inc()
	log.Info("lifecycle sweep finished",
		zap.Int("visited", len(candidates)),
		zap.Int("transitioned", n),
		zap.Int64("failed", failed.Load()),
		zap.Duration("took", time.Since(started)))
	return n, ctx.Err()
}

// Tick 由定时器调用。配置了分布式锁时，拿不到锁的实例跳过本周期。
func (s *LifecycleService) Tick(ctx context.Context) {
	if s.Lock != nil {
		release, ok, err := s.Lock.TryLock(ctx, util.SweepLockKey, s.LockTTL)
		switch {
		case err != nil:
			// 条件写入保证重复扫描无害
			logger.Log.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case !ok:
			logger.Log.Debug("sweep lock held by another instance, skipping tick")
			return
		default:
			defer release()
		}
	}

	if _, err := s.RunLifecycleSweep(ctx, s.Now()); err != nil {
		logger.Log.Error("lifecycle sweep error", zap.Error(err))
	}
}
