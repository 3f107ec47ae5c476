package scorer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-engine-go/internal/agent"
	"match-engine-go/internal/types"
)

const validScoreJSON = `{
  "overallScore": 86.5,
  "skillsScore": 90,
  "experienceScore": 85,
  "locationScore": 100,
  "salaryScore": 71,
  "reasoning": "候选人核心技能与岗位要求高度吻合，经验略超基线，地点一致。",
  "confidence": 0.88
}`

func TestLLMScorerParsesValidResponse(t *testing.T) {
	mock := agent.NewMockChatClient(validScoreJSON, nil)
	s := NewLLMScorer(mock, "qwen-plus", WithScoreTimeout(5*time.Second))

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 86.5, result.Overall)
	assert.Equal(t, 90.0, result.Skills.Score)
	assert.Equal(t, 85.0, result.Experience.Score)
	assert.Equal(t, 100.0, result.Location.Score)
	assert.Equal(t, 71.0, result.Salary.Score)
	assert.Equal(t, 0.88, result.Metadata.Confidence)
	assert.Equal(t, "qwen-plus", result.Metadata.ModelIdentifier)
	assert.NotEmpty(t, result.Rationale)

	// 子记录由画像字段补全
	assert.Equal(t, []string{"python", "sql"}, result.Skills.CandidateValue)
	assert.Equal(t, "junior", result.Experience.Required)
	assert.Equal(t, 70000.0, result.Salary.SalaryMax)
}

func TestLLMScorerExtractsJSONFromSurroundingText(t *testing.T) {
	wrapped := "评估结果如下:\n```json\n" + validScoreJSON + "\n```\n以上。"
	mock := agent.NewMockChatClient(wrapped, nil)
	s := NewLLMScorer(mock, "qwen-plus")

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	assert.Equal(t, 86.5, result.Overall)
}

func TestLLMScorerRepairsUnescapedQuotes(t *testing.T) {
	// reasoning内部夹带未转义的引号，解析应先失败后经修复成功
	broken := `{
  "overallScore": 75,
  "skillsScore": 70,
  "experienceScore": 80,
  "locationScore": 80,
  "salaryScore": 70,
  "reasoning": "候选人在"核心技能"方面表现良好。",
  "confidence": 0.7
}`
	mock := agent.NewMockChatClient(broken, nil)
	s := NewLLMScorer(mock, "qwen-plus")

	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	assert.Equal(t, 75.0, result.Overall)
	assert.Contains(t, result.Rationale, "核心技能")
}

func TestLLMScorerRejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"无JSON", "抱歉，我无法完成评估。"},
		{"分数越界", `{"overallScore": 150, "skillsScore": 50, "experienceScore": 50, "locationScore": 50, "salaryScore": 50, "reasoning": "x", "confidence": 0.5}`},
		{"置信度越界", `{"overallScore": 80, "skillsScore": 50, "experienceScore": 50, "locationScore": 50, "salaryScore": 50, "reasoning": "x", "confidence": 1.5}`},
		{"缺少说明", `{"overallScore": 80, "skillsScore": 50, "experienceScore": 50, "locationScore": 50, "salaryScore": 50, "reasoning": "", "confidence": 0.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := agent.NewMockChatClient(tt.content, nil)
			s := NewLLMScorer(mock, "qwen-plus")

			_, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			// 响应非法属于硬失败，不应触发降级
			assert.False(t, IsFallbackTrigger(err))
		})
	}
}

func TestLLMScorerPropagatesModelError(t *testing.T) {
	modelErr := errors.New("invalid api key")
	mock := agent.NewMockChatClient("", modelErr)
	s := NewLLMScorer(mock, "qwen-plus")

	_, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.Error(t, err)
	assert.ErrorIs(t, err, modelErr)
}

func TestLLMScorerUnknownLanguageFallsBackToChinese(t *testing.T) {
	mock := agent.NewMockChatClient(validScoreJSON, nil)
	s := NewLLMScorer(mock, "qwen-plus")

	_, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "fr")
	require.NoError(t, err)

	received := mock.GetReceivedMessages()
	require.NotEmpty(t, received)
	assert.Contains(t, received[0].Content, "招聘专家")
}

func TestLLMScorerHealthProbe(t *testing.T) {
	t.Run("服务正常", func(t *testing.T) {
		mock := agent.NewMockChatClient("ok", nil)
		s := NewLLMScorer(mock, "qwen-plus")
		assert.Equal(t, types.HealthHealthy, s.HealthProbe(context.Background(), time.Second))
	})

	t.Run("服务限流", func(t *testing.T) {
		mock := agent.NewMockChatClient("", errors.New("429 Too Many Requests"))
		s := NewLLMScorer(mock, "qwen-plus")
		assert.Equal(t, types.HealthDegraded, s.HealthProbe(context.Background(), time.Second))
	})

	t.Run("服务故障", func(t *testing.T) {
		mock := agent.NewMockChatClient("", errors.New("connection refused"))
		s := NewLLMScorer(mock, "qwen-plus")
		assert.Equal(t, types.HealthUnhealthy, s.HealthProbe(context.Background(), time.Second))
	})
}

func TestExtractJSONFromResponse(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSONFromResponse(`prefix {"a": 1} suffix`))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSONFromResponse(`{"a": {"b": 2}}`))
	assert.Equal(t, "", extractJSONFromResponse("no json here"))
	assert.Equal(t, "", extractJSONFromResponse(`{"unclosed": 1`))
}
