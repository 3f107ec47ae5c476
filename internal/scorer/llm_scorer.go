package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"match-engine-go/internal/logger"
	"match-engine-go/internal/types"
)

// llmScoreResponse 外部评分服务的固定响应schema
type llmScoreResponse struct {
	OverallScore    float64 `json:"overallScore"`
	SkillsScore     float64 `json:"skillsScore"`
	ExperienceScore float64 `json:"experienceScore"`
	LocationScore   float64 `json:"locationScore"`
	SalaryScore     float64 `json:"salaryScore"`
	Reasoning       string  `json:"reasoning"`
	Confidence      float64 `json:"confidence"`
}

// LLMScorer 主评分路径，把候选人与岗位画像嵌入结构化提示词后提交给大模型。
// 低温采样加固定响应schema，尽量压低评分方差。
type LLMScorer struct {
	llmModel     model.ToolCallingChatModel
	modelName    string
	scoreTimeout time.Duration
	log          zerolog.Logger
}

// LLMScorerOption LLM评分器的配置选项
type LLMScorerOption func(*LLMScorer)

// WithScoreTimeout 设置单次评分的超时时间
func WithScoreTimeout(d time.Duration) LLMScorerOption {
	return func(s *LLMScorer) {
		if d > 0 {
			s.scoreTimeout = d
		}
	}
}

// NewLLMScorer 创建LLM评分器实例
func NewLLMScorer(llmModel model.ToolCallingChatModel, modelName string, options ...LLMScorerOption) *LLMScorer {
	s := &LLMScorer{
		llmModel:     llmModel,
		modelName:    modelName,
		scoreTimeout: 30 * time.Second,
		log:          logger.Component("llm-scorer"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Name 返回评分器标识
func (s *LLMScorer) Name() string {
	if s.modelName != "" {
		return s.modelName
	}
	return "llm-primary"
}

// Score 构建结构化提示词并调用外部模型，解析固定schema的评分响应
func (s *LLMScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	if s.llmModel == nil {
		return nil, fmt.Errorf("LLMScorer: 模型客户端未初始化")
	}
	if candidate == nil || job == nil {
		return nil, fmt.Errorf("候选人画像和岗位画像不能为空")
	}

	systemMsg, userMsg, err := s.buildMessages(candidate, job, language)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.scoreTimeout)
	defer cancel()

	response, err := s.llmModel.Generate(ctx, []*einoschema.Message{systemMsg, userMsg})
	if err != nil {
		s.log.Warn().Err(err).
			Str("candidate_id", candidate.CandidateID).
			Str("job_id", job.JobID).
			Msg("LLM评分调用失败")
		return nil, fmt.Errorf("LLM评分调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLM评分返回空响应: %w", ErrMalformedResponse)
	}

	parsed, err := parseScoreResponse(response.Content)
	if err != nil {
		return nil, err
	}

	return s.assembleScore(parsed, candidate, job), nil
}

// assembleScore 用画像字段补全结构化子记录，数值来自模型响应
func (s *LLMScorer) assembleScore(parsed *llmScoreResponse, candidate *types.CandidateProfile, job *types.JobProfile) *types.MatchScore {
	return &types.MatchScore{
		Overall: parsed.OverallScore,
		Skills: types.SkillsMatch{
			Required:       tokenizeSkills(job.RequiredSkills),
			CandidateValue: candidate.Skills,
			Score:          parsed.SkillsScore,
		},
		Experience: types.ExperienceMatch{
			Required:       job.ExperienceLevel,
			CandidateValue: candidate.ExperienceYears,
			Score:          parsed.ExperienceScore,
		},
		Location: types.LocationMatch{
			Required:       job.Location,
			CandidateValue: candidate.Location,
			Score:          parsed.LocationScore,
		},
		Salary: types.SalaryMatch{
			SalaryMin:      job.SalaryMin,
			SalaryMax:      job.SalaryMax,
			Currency:       job.Currency,
			CandidateValue: candidate.ExpectedSalary,
			Score:          parsed.SalaryScore,
		},
		Rationale: parsed.Reasoning,
		Metadata: types.ScoringMetadata{
			ModelIdentifier: s.Name(),
			Confidence:      parsed.Confidence,
			Features:        []string{"skills", "experience", "location", "salary"},
		},
	}
}

// HealthProbe 用最小请求探测外部评分服务的可用性
func (s *LLMScorer) HealthProbe(ctx context.Context, timeout time.Duration) types.HealthStatus {
	if s.llmModel == nil {
		return types.HealthUnhealthy
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []*einoschema.Message{
		einoschema.SystemMessage("You are a health probe. Reply with the single word: ok"),
		einoschema.UserMessage("ping"),
	}

	_, err := s.llmModel.Generate(ctx, messages)
	switch {
	case err == nil:
		return types.HealthHealthy
	case IsFallbackTrigger(err):
		// 服务可达但被限流或超时，降级模式仍可工作
		return types.HealthDegraded
	default:
		return types.HealthUnhealthy
	}
}

// buildMessages 按指定语言组装 system/user 消息
func (s *LLMScorer) buildMessages(candidate *types.CandidateProfile, job *types.JobProfile, language string) (*einoschema.Message, *einoschema.Message, error) {
	candidateJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("序列化候选人画像失败: %w", err)
	}
	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("序列化岗位画像失败: %w", err)
	}

	tpl, ok := scorePromptTemplates[language]
	if !ok {
		tpl = scorePromptTemplates["zh"]
	}

	userContent := fmt.Sprintf(tpl.user, string(candidateJSON), string(jobJSON))
	return einoschema.SystemMessage(tpl.system), einoschema.UserMessage(userContent), nil
}

// parseScoreResponse 从模型输出中提取并解析评分JSON。
// 任何无法解析或越界的响应都按硬失败处理，不触发降级。
func parseScoreResponse(content string) (*llmScoreResponse, error) {
	processed := strings.TrimPrefix(content, "\uFEFF")

	jsonStr := extractJSONFromResponse(processed)
	if jsonStr == "" {
		return nil, fmt.Errorf("无法从模型响应中提取JSON (%s): %w", truncateForLog(processed, 200), ErrMalformedResponse)
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var parsed llmScoreResponse
	// 正常解析失败后尝试自动修复字符串内部未转义的引号，再试一次
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		fixed := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &parsed); jsonErr != nil {
			return nil, fmt.Errorf("评分JSON解析失败 (原始错误: %v): %w", err, ErrMalformedResponse)
		}
	}

	if err := validateScoreResponse(&parsed); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedResponse)
	}
	return &parsed, nil
}

// validateScoreResponse 校验评分响应的数值范围
func validateScoreResponse(r *llmScoreResponse) error {
	for name, v := range map[string]float64{
		"overallScore":    r.OverallScore,
		"skillsScore":     r.SkillsScore,
		"experienceScore": r.ExperienceScore,
		"locationScore":   r.LocationScore,
		"salaryScore":     r.SalaryScore,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s 必须在 [0,100] 区间，实际为 %v", name, v)
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence 必须在 [0,1] 区间，实际为 %v", r.Confidence)
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		return fmt.Errorf("reasoning 不能为空")
	}
	return nil
}

// extractJSONFromResponse 用括号配对从文本中提取第一个完整的JSON对象
func extractJSONFromResponse(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 会遍历 src，将任何位于字符串字面量内部但并非"真正结束"的双引号改写为转义形式，
// 以保证整个 JSON 在 Go 端能够正常反序列化。
// 它通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					// 字符串内部的裸引号，补上转义
					b.WriteString("\\\"")
				}
			}
			escaped = false

		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)

		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ Scorer = (*LLMScorer)(nil)
