package types

import "time"

// MatchDirection 推荐的发起方向，仅作记录用途，不影响评分
type MatchDirection string

const (
	// DirectionCandidateToJob 以候选人为主体，向其推荐岗位
	DirectionCandidateToJob MatchDirection = "CANDIDATE_TO_JOB"
	// DirectionJobToCandidate 以岗位为主体，向其推荐候选人
	DirectionJobToCandidate MatchDirection = "JOB_TO_CANDIDATE"
)

// ScoreCategory 根据总分派生的档位枚举
type ScoreCategory string

const (
	CategoryExcellent ScoreCategory = "EXCELLENT" // 总分 >= 90
	CategoryGood      ScoreCategory = "GOOD"      // 总分 >= 80
	CategoryAverage   ScoreCategory = "AVERAGE"   // 总分 >= 70
	CategoryPoor      ScoreCategory = "POOR"      // 总分 < 70
)

// CategoryForScore 总分到档位的纯函数映射，各档位下界为闭区间
func CategoryForScore(score float64) ScoreCategory {
	switch {
	case score >= 90:
		return CategoryExcellent
	case score >= 80:
		return CategoryGood
	case score >= 70:
		return CategoryAverage
	default:
		return CategoryPoor
	}
}

// CandidateProfile 评分所需的候选人画像子集
// 在一次评分过程中视为不可变，由外部的档案管理子系统负责维护
type CandidateProfile struct {
	CandidateID     string   `json:"candidate_id"`
	Name            string   `json:"name"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Location        string   `json:"location"`
	Bio             string   `json:"bio,omitempty"`
	Education       string   `json:"education,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
	// ExpectedSalary 期望薪资，nil 表示候选人未填写
	ExpectedSalary  *float64 `json:"expected_salary,omitempty"`
}

// JobProfile 评分所需的岗位画像子集
type JobProfile struct {
	JobID           string  `json:"job_id"`
	Title           string  `json:"title"`
	Company         string  `json:"company,omitempty"`
	Description     string  `json:"description,omitempty"`
	RequiredSkills  string  `json:"required_skills"`
	ExperienceLevel string  `json:"experience_level"`
	Location        string  `json:"location"`
	SalaryMin       float64 `json:"salary_min"`
	SalaryMax       float64 `json:"salary_max"`
	Currency        string  `json:"currency,omitempty"`
}

// SkillsMatch 技能维度的结构化匹配子记录
type SkillsMatch struct {
	Required       []string `json:"required"`
	CandidateValue []string `json:"candidate_value"`
	Matched        []string `json:"matched,omitempty"`
	Missing        []string `json:"missing,omitempty"`
	Score          float64  `json:"score"`
}

// ExperienceMatch 经验维度的结构化匹配子记录
type ExperienceMatch struct {
	Required       string  `json:"required"`
	RequiredYears  int     `json:"required_years"`
	CandidateValue int     `json:"candidate_value"`
	Score          float64 `json:"score"`
}

// LocationMatch 地点维度的结构化匹配子记录
type LocationMatch struct {
	Required       string  `json:"required"`
	CandidateValue string  `json:"candidate_value"`
	Score          float64 `json:"score"`
}

// SalaryMatch 薪资维度的结构化匹配子记录，额外携带岗位薪资区间
type SalaryMatch struct {
	SalaryMin      float64  `json:"salary_min"`
	SalaryMax      float64  `json:"salary_max"`
	Currency       string   `json:"currency,omitempty"`
	CandidateValue *float64 `json:"candidate_value,omitempty"`
	Score          float64  `json:"score"`
}

// ScoringMetadata 评分元数据，记录产生该结果的模型与置信度
type ScoringMetadata struct {
	ModelIdentifier string   `json:"model_identifier"`
	Confidence      float64  `json:"confidence"`
	Features        []string `json:"features,omitempty"`
}

// MatchScore 评分器的完整输出，四个子分与总分均在 [0,100] 区间，置信度在 [0,1]
type MatchScore struct {
	Overall    float64         `json:"overall_score"`
	Skills     SkillsMatch     `json:"skills_match"`
	Experience ExperienceMatch `json:"experience_match"`
	Location   LocationMatch   `json:"location_match"`
	Salary     SalaryMatch     `json:"salary_match"`
	Rationale  string          `json:"rationale"`
	Metadata   ScoringMetadata `json:"scoring_metadata"`
}

// RecommendationFilter 推荐列表的查询条件，零值字段表示不过滤
type RecommendationFilter struct {
	Direction   MatchDirection
	MinScore    *float64
	CandidateID string
	JobID       string
	// Search 在候选人姓名、岗位标题、公司名上做模糊匹配
	Search   string
	Location string
	Skill    string
}

// Pagination 偏移量分页参数
type Pagination struct {
	Offset int
	Limit  int
}

// FeedbackView 消费方写入的反馈
type FeedbackView struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendationView 返回给调用方的反规范化投影，附带候选人与岗位的摘要字段
type RecommendationView struct {
	ID            string          `json:"id"`
	Direction     MatchDirection  `json:"direction"`
	CandidateID   string          `json:"candidate_id"`
	CandidateName string          `json:"candidate_name,omitempty"`
	JobID         string          `json:"job_id"`
	JobTitle      string          `json:"job_title,omitempty"`
	Company       string          `json:"company,omitempty"`
	OverallScore  float64         `json:"overall_score"`
	ScoreCategory ScoreCategory   `json:"score_category"`
	Skills        SkillsMatch     `json:"skills_match"`
	Experience    ExperienceMatch `json:"experience_match"`
	Location      LocationMatch   `json:"location_match"`
	Salary        SalaryMatch     `json:"salary_match"`
	Rationale     string          `json:"rationale"`
	Metadata      ScoringMetadata `json:"scoring_metadata"`
	IsViewed      bool            `json:"is_viewed"`
	IsContacted   bool            `json:"is_contacted"`
	Feedback      *FeedbackView   `json:"feedback,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RecommendationPage 分页查询结果
type RecommendationPage struct {
	Items   []RecommendationView `json:"items"`
	Total   int64                `json:"total"`
	HasMore bool                 `json:"has_more"`
}

// RecommendationUpdate 可由消费方更新的字段集合，nil 表示不修改
type RecommendationUpdate struct {
	IsViewed        *bool   `json:"is_viewed,omitempty"`
	IsContacted     *bool   `json:"is_contacted,omitempty"`
	FeedbackRating  *int    `json:"feedback_rating,omitempty"`
	FeedbackComment *string `json:"feedback_comment,omitempty"`
}

// FrequencyCount 频次统计条目
type FrequencyCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// MatchStats 面向看板的汇总统计，全部基于活跃推荐行计算
type MatchStats struct {
	TotalActive          int64                   `json:"total_active"`
	HighQuality          int64                   `json:"high_quality"`
	AverageScore         float64                 `json:"average_score"`
	DistinctCandidates   int64                   `json:"distinct_candidates_matched"`
	DistinctJobs         int64                   `json:"distinct_jobs_matched"`
	CategoryDistribution map[ScoreCategory]int64 `json:"score_category_distribution"`
	TopSkills            []FrequencyCount        `json:"top_skills"`
	TopLocations         []FrequencyCount        `json:"top_locations"`
}

// HealthStatus 健康探针的三态结果
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)
