package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"match-engine-go/internal/types"
)

// Candidate 候选人主表 (role=candidate 的用户子集)
type Candidate struct {
	CandidateID     string         `gorm:"type:char(36);primaryKey"`
	Name            string         `gorm:"type:varchar(255)"`
	Email           string         `gorm:"type:varchar(255);uniqueIndex:idx_candidates_email_unique"`
	Role            string         `gorm:"type:varchar(50);default:'candidate';index:idx_candidates_role"`
	SkillsJSON      datatypes.JSON `gorm:"type:json"` // 字符串数组
	ExperienceYears int            `gorm:"type:int;default:0"`
	Location        string         `gorm:"type:varchar(255)"`
	Bio             string         `gorm:"type:text"`
	Education       string         `gorm:"type:varchar(255)"`
	CertsJSON       datatypes.JSON `gorm:"type:json"` // 字符串数组
	ExpectedSalary  *float64       `gorm:"type:double"`
	IsActive        bool           `gorm:"default:true;index:idx_candidates_is_active"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Skills 反序列化技能列表，JSON为空或非法时返回nil
func (c *Candidate) Skills() []string {
	return decodeStringSlice(c.SkillsJSON)
}

// Certifications 反序列化证书列表
func (c *Candidate) Certifications() []string {
	return decodeStringSlice(c.CertsJSON)
}

// ToProfile 转换为评分用的候选人画像
func (c *Candidate) ToProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		CandidateID:     c.CandidateID,
		Name:            c.Name,
		Skills:          c.Skills(),
		ExperienceYears: c.ExperienceYears,
		Location:        c.Location,
		Bio:             c.Bio,
		Education:       c.Education,
		Certifications:  c.Certifications(),
		ExpectedSalary:  c.ExpectedSalary,
	}
}

// Job 岗位信息表
type Job struct {
	JobID              string    `gorm:"type:char(36);primaryKey"`
	JobTitle           string    `gorm:"type:varchar(255);not null"`
	Company            string    `gorm:"type:varchar(255)"`
	JobDescriptionText string    `gorm:"type:text"`
	RequiredSkillsText string    `gorm:"type:text"` // 自由文本或逗号分隔的技能要求
	ExperienceLevel    string    `gorm:"type:varchar(50);index:idx_jobs_experience_level"`
	Location           string    `gorm:"type:varchar(255)"`
	SalaryMin          float64   `gorm:"type:double;default:0"`
	SalaryMax          float64   `gorm:"type:double;default:0"`
	Currency           string    `gorm:"type:varchar(10)"`
	Status             string    `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt          time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// ToProfile 转换为评分用的岗位画像
func (j *Job) ToProfile() *types.JobProfile {
	return &types.JobProfile{
		JobID:           j.JobID,
		Title:           j.JobTitle,
		Company:         j.Company,
		Description:     j.JobDescriptionText,
		RequiredSkills:  j.RequiredSkillsText,
		ExperienceLevel: j.ExperienceLevel,
		Location:        j.Location,
		SalaryMin:       j.SalaryMin,
		SalaryMax:       j.SalaryMax,
		Currency:        j.Currency,
	}
}

// Recommendation 候选人-岗位推荐表，本引擎唯一拥有写权的实体
//
// 唯一性约束: (candidate_id, job_id, direction, active_flag) 上的唯一索引。
// active_flag 在行活跃时为1，停用时置为NULL；MySQL的唯一索引允许多个NULL，
// 以此模拟"仅对活跃行生效"的部分唯一索引，配合插入时的冲突跳过语义。
type Recommendation struct {
	RecommendationID string         `gorm:"type:char(36);primaryKey"`
	Direction        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_rec_pair_active_unique,priority:3"`
	CandidateID      string         `gorm:"type:char(36);not null;index:idx_rec_candidate_id;uniqueIndex:idx_rec_pair_active_unique,priority:1"`
	JobID            string         `gorm:"type:char(36);not null;index:idx_rec_job_id;uniqueIndex:idx_rec_pair_active_unique,priority:2"`
	OverallScore     float64        `gorm:"type:double;not null;index:idx_rec_overall_score"`
	ScoreCategory    string         `gorm:"type:varchar(20);not null;index:idx_rec_score_category"`
	SkillsMatchJSON  datatypes.JSON `gorm:"type:json"`
	ExpMatchJSON     datatypes.JSON `gorm:"type:json"`
	LocMatchJSON     datatypes.JSON `gorm:"type:json"`
	SalaryMatchJSON  datatypes.JSON `gorm:"type:json"`
	Rationale        string         `gorm:"type:text"`
	MetadataJSON     datatypes.JSON `gorm:"type:json"`
	IsActive         bool           `gorm:"default:true;index:idx_rec_is_active"`
	ActiveFlag       *bool          `gorm:"uniqueIndex:idx_rec_pair_active_unique,priority:4"`
	IsViewed         bool           `gorm:"default:false"`
	ViewedAt         *time.Time     `gorm:"type:datetime(6)"`
	IsContacted      bool           `gorm:"default:false"`
	ContactedAt      *time.Time     `gorm:"type:datetime(6)"`
	FeedbackJSON     datatypes.JSON `gorm:"type:json"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rec_created_at"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job       *Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// PairKey 返回 "candidateId-jobId-direction" 形式的配对键，用于批内去重
func (r *Recommendation) PairKey() string {
	return r.CandidateID + "-" + r.JobID + "-" + r.Direction
}

// ToView 展开JSON子记录，组装返回给调用方的反规范化投影
func (r *Recommendation) ToView() types.RecommendationView {
	view := types.RecommendationView{
		ID:            r.RecommendationID,
		Direction:     types.MatchDirection(r.Direction),
		CandidateID:   r.CandidateID,
		JobID:         r.JobID,
		OverallScore:  r.OverallScore,
		ScoreCategory: types.ScoreCategory(r.ScoreCategory),
		Rationale:     r.Rationale,
		IsViewed:      r.IsViewed,
		IsContacted:   r.IsContacted,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	// 子记录解码失败时保留零值，不阻塞返回
	_ = json.Unmarshal(r.SkillsMatchJSON, &view.Skills)
	_ = json.Unmarshal(r.ExpMatchJSON, &view.Experience)
	_ = json.Unmarshal(r.LocMatchJSON, &view.Location)
	_ = json.Unmarshal(r.SalaryMatchJSON, &view.Salary)
	_ = json.Unmarshal(r.MetadataJSON, &view.Metadata)

	if len(r.FeedbackJSON) > 0 {
		var fb types.FeedbackView
		if err := json.Unmarshal(r.FeedbackJSON, &fb); err == nil {
			view.Feedback = &fb
		}
	}

	if r.Candidate != nil {
		view.CandidateName = r.Candidate.Name
	}
	if r.Job != nil {
		view.JobTitle = r.Job.JobTitle
		view.Company = r.Job.Company
	}

	return view
}

// ToJSON Helper function to marshal any value into datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

func decodeStringSlice(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
