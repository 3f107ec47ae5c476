package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"match-engine-go/internal/config"
	"match-engine-go/internal/logger"
	"match-engine-go/internal/scorer"
	"match-engine-go/internal/types"
)

var engineTracer = otel.Tracer("match-engine-go/engine")

// ErrSweepInProgress 已有一次全量扫描持有分布式锁
var ErrSweepInProgress = errors.New("已有全量扫描在执行中")

// Engine 推荐引擎。依赖通过构造函数注入，存储与缓存以窄接口出现，便于替换与测试。
type Engine struct {
	candidates CandidateStore
	jobs       JobStore
	recs       RecommendationStore
	cache      StatsCache   // 可为nil，统计缓存与扫描锁降级
	prober     HealthProber // 可为nil，外部评分服务未配置

	matchScorer scorer.Scorer
	cfg         *config.Config
	log         zerolog.Logger
}

// Option 引擎的可选依赖
type Option func(*Engine)

// WithStatsCache 注入统计缓存与分布式锁实现
func WithStatsCache(cache StatsCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithHealthProber 注入外部评分服务的健康探针
func WithHealthProber(prober HealthProber) Option {
	return func(e *Engine) {
		e.prober = prober
	}
}

// New 创建推荐引擎
func New(candidates CandidateStore, jobs JobStore, recs RecommendationStore, matchScorer scorer.Scorer, cfg *config.Config, opts ...Option) (*Engine, error) {
	if candidates == nil || jobs == nil || recs == nil {
		return nil, fmt.Errorf("实体访问器不能为空")
	}
	if matchScorer == nil {
		return nil, fmt.Errorf("评分器不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	e := &Engine{
		candidates:  candidates,
		jobs:        jobs,
		recs:        recs,
		matchScorer: matchScorer,
		cfg:         cfg,
		log:         logger.Component("match-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// normalizeDirection 校验推荐方向，空值默认以候选人为主体
func normalizeDirection(direction types.MatchDirection) (types.MatchDirection, error) {
	switch direction {
	case "":
		return types.DirectionCandidateToJob, nil
	case types.DirectionCandidateToJob, types.DirectionJobToCandidate:
		return direction, nil
	default:
		return "", fmt.Errorf("非法的推荐方向: %s", direction)
	}
}

// normalizeLimit 归一化请求条数，非正值回落到配置的默认值
func (e *Engine) normalizeLimit(limit int) int {
	if limit > 0 {
		return limit
	}
	if e.cfg.Matching.DefaultLimit > 0 {
		return e.cfg.Matching.DefaultLimit
	}
	return 10
}
