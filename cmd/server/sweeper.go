package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

// runSweeper 按固定周期结束超时会话，ctx 取消后返回
func runSweeper(ctx context.Context, sessions service.SessionService, clk clock.Clock, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, sessions, clk, logger)
		}
	}
}

func sweepOnce(ctx context.Context, sessions service.SessionService, clk clock.Clock, logger *zap.Logger) {
	result, err := sessions.SweepOverdue(ctx, clk.Now())
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("清理超时会话失败", zap.Error(err))
		}
		return
	}
	if result.Completed > 0 {
		logger.Info("已结束超时会话",
			zap.Int("completed", result.Completed),
			zap.Int64("marks_closed", result.MarksClosed),
		)
	}
}
