package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-engine-go/internal/types"
)

func floatPtr(v float64) *float64 {
	return &v
}

func baselineCandidate() *types.CandidateProfile {
	return &types.CandidateProfile{
		CandidateID:     "cand-001",
		Name:            "测试候选人",
		Skills:          []string{"python", "sql"},
		ExperienceYears: 2,
		Location:        "remote",
	}
}

func baselineJob() *types.JobProfile {
	return &types.JobProfile{
		JobID:           "job-001",
		Title:           "数据工程师",
		RequiredSkills:  "python, aws",
		ExperienceLevel: "junior",
		Location:        "remote",
		SalaryMin:       50000,
		SalaryMax:       70000,
		Currency:        "USD",
	}
}

// 基准场景: 技能命中一半、经验达标、地点一致、薪资期望缺失
func TestRuleScorerBaselineScenario(t *testing.T) {
	s := NewRuleScorer()
	result, err := s.Score(context.Background(), baselineCandidate(), baselineJob(), "zh")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 50.0, result.Skills.Score, "岗位要求2个技能词元，候选人命中python一项")
	assert.Equal(t, 100.0, result.Experience.Score, "2年经验超过junior基线1年")
	assert.Equal(t, 100.0, result.Location.Score, "remote与remote完全一致")
	assert.Equal(t, 70.0, result.Salary.Score, "期望薪资缺失给中性分")
	assert.Equal(t, 80.0, result.Overall)
	assert.Equal(t, types.CategoryGood, types.CategoryForScore(result.Overall))
	assert.Equal(t, 0.6, result.Metadata.Confidence)
	assert.NotEmpty(t, result.Rationale)
}

func TestRuleScorerSalaryAboveMax(t *testing.T) {
	s := NewRuleScorer()
	candidate := baselineCandidate()
	candidate.ExpectedSalary = floatPtr(80000)

	result, err := s.Score(context.Background(), candidate, baselineJob(), "zh")
	require.NoError(t, err)

	// max(0, 100 - (80000-70000)/70000*50)
	assert.InDelta(t, 92.857142857, result.Salary.Score, 0.0001)
}

func TestRuleScorerSalaryBands(t *testing.T) {
	tests := []struct {
		name     string
		expected *float64
		want     float64
	}{
		{"期望不高于下限", floatPtr(50000), 100},
		{"期望低于下限", floatPtr(40000), 100},
		{"期望在区间内", floatPtr(60000), 80},
		{"期望等于上限", floatPtr(70000), 80},
		{"期望缺失", nil, 70},
		{"期望远超上限至零分", floatPtr(70000 * 3.1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreSalary(50000, 70000, "USD", tt.expected)
			assert.InDelta(t, tt.want, got.Score, 0.0001)
		})
	}
}

func TestRuleScorerLocationBands(t *testing.T) {
	tests := []struct {
		name      string
		job       string
		candidate string
		want      float64
	}{
		{"完全一致", "Beijing", "beijing", 100},
		{"岗位远程", "Remote", "Almaty", 80},
		{"候选人远程", "Moscow", "remote", 80},
		{"完全错位", "Beijing", "Almaty", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreLocation(tt.job, tt.candidate)
			assert.Equal(t, tt.want, got.Score)
		})
	}
}

func TestRuleScorerExperienceBaselines(t *testing.T) {
	tests := []struct {
		name  string
		level string
		years int
		want  float64
	}{
		{"entry无门槛", "entry", 0, 100},
		{"junior达标", "junior", 1, 100},
		{"middle不足按比例", "middle", 1, 100.0 / 3},
		{"senior达标", "senior", 6, 100},
		{"lead不足", "lead", 3, 300.0 / 7},
		{"executive不足", "executive", 5, 50},
		{"未知级别不设门槛", "principal", 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreExperience(tt.level, tt.years)
			assert.InDelta(t, tt.want, got.Score, 0.0001)
		})
	}
}

func TestRuleScorerSkillsEdgeCases(t *testing.T) {
	t.Run("候选人无技能数据得零分", func(t *testing.T) {
		got := scoreSkills("python, aws", nil)
		assert.Equal(t, 0.0, got.Score)
	})

	t.Run("岗位无技能要求得零分", func(t *testing.T) {
		got := scoreSkills("", []string{"python"})
		assert.Equal(t, 0.0, got.Score)
	})

	t.Run("全部命中得满分", func(t *testing.T) {
		got := scoreSkills("python, sql", []string{"Python", "SQL", "Go"})
		assert.Equal(t, 100.0, got.Score)
		assert.Len(t, got.Matched, 2)
		assert.Empty(t, got.Missing)
	})

	t.Run("大小写不敏感的子串匹配", func(t *testing.T) {
		got := scoreSkills("PostgreSQL", []string{"postgresql 14"})
		assert.Equal(t, 100.0, got.Score)
	})

	t.Run("重复词元只计一次", func(t *testing.T) {
		got := scoreSkills("python python aws", []string{"python"})
		assert.Equal(t, 50.0, got.Score)
	})

	t.Run("单字母技能不反向覆盖长词元", func(t *testing.T) {
		got := scoreSkills("react, redis, kafka", []string{"c"})
		assert.Equal(t, 0.0, got.Score)
		assert.Len(t, got.Missing, 3)
	})

	t.Run("单字母技能仍可精确命中同名词元", func(t *testing.T) {
		got := scoreSkills("C, rust", []string{"c"})
		assert.Equal(t, 50.0, got.Score)
		assert.Equal(t, []string{"C"}, got.Matched)
	})

	t.Run("短技能作为词元前缀仍被计入", func(t *testing.T) {
		got := scoreSkills("golang", []string{"Go"})
		assert.Equal(t, 100.0, got.Score)
	})
}

// 降级输出的总分恒等于四个子分的算术平均，且所有分值在界内
func TestRuleScorerInvariants(t *testing.T) {
	s := NewRuleScorer()
	cases := []*types.CandidateProfile{
		baselineCandidate(),
		{CandidateID: "c2", Skills: nil, ExperienceYears: 0, Location: ""},
		{CandidateID: "c3", Skills: []string{"go", "k8s"}, ExperienceYears: 15, Location: "Astana", ExpectedSalary: floatPtr(500000)},
	}

	for _, candidate := range cases {
		result, err := s.Score(context.Background(), candidate, baselineJob(), "en")
		require.NoError(t, err)

		mean := (result.Skills.Score + result.Experience.Score + result.Location.Score + result.Salary.Score) / 4
		assert.InDelta(t, mean, result.Overall, 0.0001)
		assert.Equal(t, 0.6, result.Metadata.Confidence)

		for _, v := range []float64{result.Overall, result.Skills.Score, result.Experience.Score, result.Location.Score, result.Salary.Score} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestRuleScorerNilProfiles(t *testing.T) {
	s := NewRuleScorer()
	_, err := s.Score(context.Background(), nil, baselineJob(), "zh")
	assert.Error(t, err)

	_, err = s.Score(context.Background(), baselineCandidate(), nil, "zh")
	assert.Error(t, err)
}
