package scorer

import (
	"context"

	"github.com/rs/zerolog"

	"match-engine-go/internal/logger"
	"match-engine-go/internal/types"
)

// FailoverScorer 把主评分器与降级评分器统一在同一契约后面。
// 只有限流/配额/超时触发降级，其余错误原样上抛给调用方。
type FailoverScorer struct {
	primary  Scorer
	fallback Scorer
	log      zerolog.Logger
}

// NewFailoverScorer 创建评分策略组合器。primary 可以为 nil，此时所有请求直接走降级路径。
func NewFailoverScorer(primary, fallback Scorer) *FailoverScorer {
	return &FailoverScorer{
		primary:  primary,
		fallback: fallback,
		log:      logger.Component("failover-scorer"),
	}
}

// Name 返回当前主评分器的标识
func (s *FailoverScorer) Name() string {
	if s.primary != nil {
		return s.primary.Name()
	}
	return s.fallback.Name()
}

// Score 先尝试主评分器，命中降级条件时切换到规则评分器
func (s *FailoverScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	if s.primary == nil {
		return s.fallback.Score(ctx, candidate, job, language)
	}

	result, err := s.primary.Score(ctx, candidate, job, language)
	if err == nil {
		return result, nil
	}

	if !IsFallbackTrigger(err) {
		// 硬失败(响应非法、鉴权错误等)不降级，避免掩盖真实缺陷
		return nil, err
	}

	s.log.Warn().Err(err).
		Str("candidate_id", candidate.CandidateID).
		Str("job_id", job.JobID).
		Msg("主评分器不可用，切换到降级规则评分")

	return s.fallback.Score(ctx, candidate, job, language)
}

var _ Scorer = (*FailoverScorer)(nil)
