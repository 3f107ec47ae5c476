// Package engine 实现推荐引擎的编排层: 四种生成模式、写入前去重、
// 查询投影与统计、生命周期维护。评分本身委托给 scorer 包。
package engine

import (
	"context"
	"time"

	"match-engine-go/internal/storage"
	"match-engine-go/internal/storage/models"
	"match-engine-go/internal/types"
)

// CandidateStore 候选人实体的只读访问
type CandidateStore interface {
	GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error)
	ListActiveCandidates(ctx context.Context, limit int) ([]models.Candidate, error)
}

// JobStore 岗位实体的只读访问
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
	ListActiveJobs(ctx context.Context, limit int) ([]models.Job, error)
}

// RecommendationStore 推荐实体的读写访问，引擎唯一持有写权的表
type RecommendationStore interface {
	ListActivePairs(ctx context.Context, candidateIDs, jobIDs []string) (map[string]struct{}, error)
	InsertRecommendations(ctx context.Context, recs []*models.Recommendation, outboxFor func(*models.Recommendation) (*models.OutboxMessage, error)) ([]*models.Recommendation, error)
	ListRecommendations(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) ([]models.Recommendation, int64, error)
	GetRecommendationByID(ctx context.Context, id string) (*models.Recommendation, error)
	UpdateRecommendation(ctx context.Context, id string, updates map[string]interface{}) error
	GetRecommendationStats(ctx context.Context, highQualityFloor float64) (*types.MatchStats, error)
	CleanupInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountRecommendations(ctx context.Context) (int64, error)
}

// StatsCache 统计缓存与分布式锁，由外部注入而不是包内全局状态
type StatsCache interface {
	GetCachedStats(ctx context.Context) (*types.MatchStats, error)
	CacheStats(ctx context.Context, stats *types.MatchStats) error
	InvalidateStats(ctx context.Context) error
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// HealthProber 外部评分服务的健康探针
type HealthProber interface {
	HealthProbe(ctx context.Context, timeout time.Duration) types.HealthStatus
}

var (
	_ CandidateStore      = (*storage.MySQL)(nil)
	_ JobStore            = (*storage.MySQL)(nil)
	_ RecommendationStore = (*storage.MySQL)(nil)
	_ StatsCache          = (*storage.Redis)(nil)
)
