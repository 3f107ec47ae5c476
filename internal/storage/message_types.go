package storage

import "time"

// RecommendationGeneratedEvent 推荐生成事件，经发件箱中继投递给下游(通知、看板)
type RecommendationGeneratedEvent struct {
	RecommendationID string    `json:"recommendation_id"`
	CandidateID      string    `json:"candidate_id"`
	JobID            string    `json:"job_id"`
	Direction        string    `json:"direction"`
	OverallScore     float64   `json:"overall_score"`
	ScoreCategory    string    `json:"score_category"`
	ScorerName       string    `json:"scorer_name"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// EventTypeRecommendationGenerated 发件箱消息的事件类型标识
const EventTypeRecommendationGenerated = "recommendation.generated"
