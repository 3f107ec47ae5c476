package engine

import (
	"context"
	"fmt"
	"time"

	"match-engine-go/internal/config"
	"match-engine-go/internal/constants"
	"match-engine-go/internal/types"
)

// Cleanup 硬删除创建时间早于 olderThanDays 天且已停用的推荐，返回删除行数。
// 活跃行无论多旧都不会被删除。
func (e *Engine) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = constants.DefaultCleanupDays
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	deleted, err := e.recs.CleanupInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	e.log.Info().
		Int("older_than_days", olderThanDays).
		Int64("deleted", deleted).
		Msg("清理过期的非活跃推荐完成")
	return deleted, nil
}

// HealthCheck 探测引擎自身的可用性(存储可达即健康)，与外部评分服务无关
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.recs.CountRecommendations(ctx); err != nil {
		return fmt.Errorf("推荐存储不可达: %w", err)
	}
	return nil
}

// ScorerHealthCheck 独立探测外部评分服务。
// 未注入探针(未配置外部模型)时报告不健康，引擎仍可依靠降级规则工作。
func (e *Engine) ScorerHealthCheck(ctx context.Context) types.HealthStatus {
	if e.prober == nil {
		return types.HealthUnhealthy
	}
	timeout := config.GetDuration(e.cfg.Scorer.HealthProbeTimeout, 5*time.Second)
	return e.prober.HealthProbe(ctx, timeout)
}
