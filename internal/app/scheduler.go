package app

import (
	"classroom_backend/pkg/logger"
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// startScheduler 按配置周期触发生命周期扫描，上一次未结束时跳过本次
func (a *App) startScheduler(ctx context.Context) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Log))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	lifecycle := a.services.lifecycle
	if _, err := c.AddFunc(a.Config.Scheduler.Spec, func() {
		lifecycle.Tick(ctx)
	}); err != nil {
		return nil, err
	}

	c.Start()
	logger.Log.Info("lifecycle scheduler started",
		zap.String("spec", a.Config.Scheduler.Spec),
		zap.Int("workers", lifecycle.Workers()))
	return c, nil
}
