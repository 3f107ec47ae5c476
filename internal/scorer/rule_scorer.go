package scorer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"match-engine-go/internal/constants"
	"match-engine-go/internal/types"
)

// RuleScorer 本地确定性规则评分器，作为外部评分服务的降级路径。
// 不发起任何网络调用，输出固定置信度以标记降级模式。
type RuleScorer struct{}

// NewRuleScorer 创建规则评分器
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Name 返回评分器标识
func (s *RuleScorer) Name() string {
	return "rule-fallback"
}

// Score 按固定公式计算四个维度的子分，总分取无权重算术平均
func (s *RuleScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	if candidate == nil || job == nil {
		return nil, fmt.Errorf("候选人画像和岗位画像不能为空")
	}

	skills := scoreSkills(job.RequiredSkills, candidate.Skills)
	experience := scoreExperience(job.ExperienceLevel, candidate.ExperienceYears)
	location := scoreLocation(job.Location, candidate.Location)
	salary := scoreSalary(job.SalaryMin, job.SalaryMax, job.Currency, candidate.ExpectedSalary)

	overall := (skills.Score + experience.Score + location.Score + salary.Score) / 4

	return &types.MatchScore{
		Overall:    overall,
		Skills:     skills,
		Experience: experience,
		Location:   location,
		Salary:     salary,
		Rationale:  fallbackRationale(language, skills, experience),
		Metadata: types.ScoringMetadata{
			ModelIdentifier: s.Name(),
			Confidence:      constants.FallbackConfidence,
			Features:        []string{"skills", "experience", "location", "salary"},
		},
	}, nil
}

// scoreSkills 技能分: 统计岗位要求词元被候选人技能(大小写不敏感的子串匹配)覆盖的比例。
// 任一侧无技能数据时得0分。
func scoreSkills(requiredText string, candidateSkills []string) types.SkillsMatch {
	required := tokenizeSkills(requiredText)
	match := types.SkillsMatch{
		Required:       required,
		CandidateValue: candidateSkills,
	}

	if len(required) == 0 || len(candidateSkills) == 0 {
		match.Missing = required
		match.Score = 0
		return match
	}

	lowered := make([]string, len(candidateSkills))
	for i, s := range candidateSkills {
		lowered[i] = strings.ToLower(s)
	}

	for _, token := range required {
		tokenLower := strings.ToLower(token)
		covered := false
		for _, skill := range lowered {
			// 反向包含只对长度>=2的技能生效，避免单字母技能误覆盖大量词元
			if strings.Contains(skill, tokenLower) ||
				(len(skill) >= 2 && strings.Contains(tokenLower, skill)) {
				covered = true
				break
			}
		}
		if covered {
			match.Matched = append(match.Matched, token)
		} else {
			match.Missing = append(match.Missing, token)
		}
	}

	score := float64(len(match.Matched)) / float64(len(required)) * 100
	if score > 100 {
		score = 100
	}
	match.Score = score
	return match
}

// tokenizeSkills 把自由文本的技能要求拆成词元，分隔符为所有非字母数字字符
func tokenizeSkills(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// scoreExperience 经验分: 岗位级别映射到期望年限基线，达标得满分，不足按比例给分
func scoreExperience(level string, candidateYears int) types.ExperienceMatch {
	baseline, known := constants.ExperienceBaselines[strings.ToLower(strings.TrimSpace(level))]
	if !known {
		// 未知级别按无门槛处理
		baseline = 0
	}

	match := types.ExperienceMatch{
		Required:       level,
		RequiredYears:  baseline,
		CandidateValue: candidateYears,
	}

	if candidateYears >= baseline || baseline == 0 {
		match.Score = 100
		return match
	}
	if candidateYears < 0 {
		match.Score = 0
		return match
	}
	match.Score = float64(candidateYears) / float64(baseline) * 100
	return match
}

// scoreLocation 地点分: 完全一致100，任一侧提到remote 80，其余50
func scoreLocation(jobLocation, candidateLocation string) types.LocationMatch {
	match := types.LocationMatch{
		Required:       jobLocation,
		CandidateValue: candidateLocation,
	}

	jobNorm := strings.ToLower(strings.TrimSpace(jobLocation))
	candNorm := strings.ToLower(strings.TrimSpace(candidateLocation))

	switch {
	case jobNorm == candNorm:
		match.Score = 100
	case strings.Contains(jobNorm, "remote") || strings.Contains(candNorm, "remote"):
		match.Score = 80
	default:
		match.Score = 50
	}
	return match
}

// scoreSalary 薪资分: 期望不高于下限100，在区间内80，超上限按超出比例扣分。
// 候选人未填写期望或岗位无薪资数据时给中性分70。
func scoreSalary(salaryMin, salaryMax float64, currency string, expected *float64) types.SalaryMatch {
	match := types.SalaryMatch{
		SalaryMin:      salaryMin,
		SalaryMax:      salaryMax,
		Currency:       currency,
		CandidateValue: expected,
	}

	if expected == nil || salaryMax <= 0 {
		match.Score = constants.NeutralSalaryScore
		return match
	}

	exp := *expected
	switch {
	case exp <= salaryMin:
		match.Score = 100
	case exp <= salaryMax:
		match.Score = 80
	default:
		score := 100 - (exp-salaryMax)/salaryMax*50
		if score < 0 {
			score = 0
		}
		match.Score = score
	}
	return match
}

// fallbackRationale 降级评分的说明文案，按提示词语言给出
func fallbackRationale(language string, skills types.SkillsMatch, experience types.ExperienceMatch) string {
	matched := len(skills.Matched)
	total := len(skills.Required)

	switch language {
	case "en":
		return fmt.Sprintf("Scored by deterministic fallback rules (primary scorer unavailable): %d of %d required skill tokens matched, %d years of experience against a %d-year baseline.",
			matched, total, experience.CandidateValue, experience.RequiredYears)
	case "ru":
		return fmt.Sprintf("Оценка выполнена резервными правилами (основной сервис недоступен): совпало %d из %d требуемых навыков, опыт %d лет при базовом уровне %d лет.",
			matched, total, experience.CandidateValue, experience.RequiredYears)
	case "kk":
		return fmt.Sprintf("Баға резервтік ережелермен есептелді (негізгі сервис қолжетімсіз): талап етілген %d дағдының %d-і сәйкес келді, тәжірибе %d жыл (базалық деңгей %d жыл).",
			total, matched, experience.CandidateValue, experience.RequiredYears)
	default:
		return fmt.Sprintf("本次评分由本地降级规则完成(主评分服务不可用): 岗位要求的%d项技能中命中%d项，候选人经验%d年，岗位基线%d年。",
			total, matched, experience.CandidateValue, experience.RequiredYears)
	}
}

var _ Scorer = (*RuleScorer)(nil)
