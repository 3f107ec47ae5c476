package scorer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-engine-go/internal/types"
)

// stubScorer 返回固定结果或固定错误的测试替身
type stubScorer struct {
	name   string
	result *types.MatchScore
	err    error
	calls  int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestFailoverScorerPrimarySuccess(t *testing.T) {
	primary := &stubScorer{name: "qwen-plus", result: &types.MatchScore{Overall: 91}}
	fallback := &stubScorer{name: "rule-fallback", result: &types.MatchScore{Overall: 55}}
	s := NewFailoverScorer(primary, fallback)

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	assert.Equal(t, 91.0, result.Overall)
	assert.Equal(t, 0, fallback.calls, "主评分器成功时不应触碰降级路径")
}

func TestFailoverScorerRateLimitedFallsBack(t *testing.T) {
	primary := &stubScorer{name: "qwen-plus", err: fmt.Errorf("LLM评分调用失败: %w", ErrRateLimited)}
	fallback := NewRuleScorer()
	s := NewFailoverScorer(primary, fallback)

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)

	// 降级输出带固定置信度和规则评分器标识
	assert.Equal(t, 0.6, result.Metadata.Confidence)
	assert.Equal(t, "rule-fallback", result.Metadata.ModelIdentifier)
	assert.Equal(t, 80.0, result.Overall)
}

func TestFailoverScorerTimeoutFallsBack(t *testing.T) {
	primary := &stubScorer{name: "qwen-plus", err: fmt.Errorf("LLM评分调用失败: %w", context.DeadlineExceeded)}
	fallback := &stubScorer{name: "rule-fallback", result: &types.MatchScore{Overall: 60}}
	s := NewFailoverScorer(primary, fallback)

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Overall)
	assert.Equal(t, 1, fallback.calls)
}

func TestFailoverScorerHardFailurePropagates(t *testing.T) {
	hardErr := fmt.Errorf("评分JSON解析失败: %w", ErrMalformedResponse)
	primary := &stubScorer{name: "qwen-plus", err: hardErr}
	fallback := &stubScorer{name: "rule-fallback", result: &types.MatchScore{Overall: 60}}
	s := NewFailoverScorer(primary, fallback)

	_, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, 0, fallback.calls, "硬失败必须原样上抛，不得降级")
}

func TestFailoverScorerNilPrimary(t *testing.T) {
	s := NewFailoverScorer(nil, NewRuleScorer())
	assert.Equal(t, "rule-fallback", s.Name())

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	assert.Equal(t, 0.6, result.Metadata.Confidence)
}

func TestFailoverScorerName(t *testing.T) {
	s := NewFailoverScorer(&stubScorer{name: "qwen-plus"}, NewRuleScorer())
	assert.Equal(t, "qwen-plus", s.Name())
}

func TestIsFallbackTrigger(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"限流哨兵", ErrRateLimited, true},
		{"包装后的限流哨兵", fmt.Errorf("调用失败: %w", ErrRateLimited), true},
		{"上下文超时", context.DeadlineExceeded, true},
		{"消息含429", errors.New("upstream returned 429"), true},
		{"消息含rate limit", errors.New("Rate Limit exceeded for model"), true},
		{"消息含quota", errors.New("insufficient quota remaining"), true},
		{"消息含throttled", errors.New("request throttled by provider"), true},
		{"消息含too many requests", errors.New("Too Many Requests"), true},
		{"响应非法", ErrMalformedResponse, false},
		{"鉴权失败", errors.New("invalid api key"), false},
		{"上下文取消", context.Canceled, false},
		{"空错误", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFallbackTrigger(tt.err))
		})
	}
}
