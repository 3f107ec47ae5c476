// Package handler 承接调用方请求: 参数校验、调用推荐引擎、错误归类。
// 不包含业务逻辑，传输层细节留给 router。
package handler

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"match-engine-go/internal/config"
	"match-engine-go/internal/constants"
	"match-engine-go/internal/engine"
	"match-engine-go/internal/types"
)

// MatchEngine 处理器依赖的引擎操作集合
type MatchEngine interface {
	GeneratePair(ctx context.Context, candidateID, jobID string, direction types.MatchDirection, language string) ([]types.RecommendationView, error)
	GenerateForCandidate(ctx context.Context, candidateID string, limit int, language string) ([]types.RecommendationView, error)
	GenerateForJob(ctx context.Context, jobID string, limit int, language string) ([]types.RecommendationView, error)
	GenerateSweep(ctx context.Context, limit int, language string) ([]types.RecommendationView, error)
	List(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) (*types.RecommendationPage, error)
	GetByID(ctx context.Context, id string) (*types.RecommendationView, error)
	Update(ctx context.Context, id string, update types.RecommendationUpdate) (*types.RecommendationView, error)
	Stats(ctx context.Context) (*types.MatchStats, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
	HealthCheck(ctx context.Context) error
	ScorerHealthCheck(ctx context.Context) types.HealthStatus
	SupportedLanguages() []string
}

var _ MatchEngine = (*engine.Engine)(nil)

// RecommendationHandler 推荐引擎的请求处理器
type RecommendationHandler struct {
	cfg    *config.Config
	engine MatchEngine
}

// NewRecommendationHandler 创建推荐处理器
func NewRecommendationHandler(cfg *config.Config, eng MatchEngine) *RecommendationHandler {
	return &RecommendationHandler{
		cfg:    cfg,
		engine: eng,
	}
}

// GeneratePairRequest 单配对生成请求
type GeneratePairRequest struct {
	CandidateID string `json:"candidate_id"`
	JobID       string `json:"job_id"`
	Direction   string `json:"direction,omitempty"`
	Language    string `json:"language,omitempty"`
}

// GenerateBatchRequest 批量生成请求(按候选人/按岗位/全量扫描共用)
type GenerateBatchRequest struct {
	Limit    int    `json:"limit,omitempty"`
	Language string `json:"language,omitempty"`
}

// GenerateResponse 生成类接口的统一响应，只包含本次新写入的推荐
type GenerateResponse struct {
	Items []types.RecommendationView `json:"items"`
	Count int                        `json:"count"`
}

// CleanupRequest 清理请求
type CleanupRequest struct {
	OlderThanDays int `json:"older_than_days,omitempty"`
}

// CleanupResponse 清理响应
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// normalizeLanguage 把请求语言归一化到支持的列表，未指定或不支持时回落到中文
func normalizeLanguage(language string) string {
	for _, lang := range constants.SupportedLanguages {
		if language == lang {
			return language
		}
	}
	return "zh"
}

// HandleGeneratePair 为指定配对生成推荐
func (h *RecommendationHandler) HandleGeneratePair(ctx context.Context, req GeneratePairRequest) (*GenerateResponse, error) {
	if req.CandidateID == "" || req.JobID == "" {
		return nil, fmt.Errorf("candidate_id 和 job_id 不能为空")
	}

	views, err := h.engine.GeneratePair(ctx, req.CandidateID, req.JobID,
		types.MatchDirection(req.Direction), normalizeLanguage(req.Language))
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Items: views, Count: len(views)}, nil
}

// HandleGenerateForCandidate 为候选人生成岗位推荐
func (h *RecommendationHandler) HandleGenerateForCandidate(ctx context.Context, candidateID string, req GenerateBatchRequest) (*GenerateResponse, error) {
	if candidateID == "" {
		return nil, fmt.Errorf("candidate_id 不能为空")
	}
	views, err := h.engine.GenerateForCandidate(ctx, candidateID, req.Limit, normalizeLanguage(req.Language))
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Items: views, Count: len(views)}, nil
}

// HandleGenerateForJob 为岗位生成候选人推荐
func (h *RecommendationHandler) HandleGenerateForJob(ctx context.Context, jobID string, req GenerateBatchRequest) (*GenerateResponse, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job_id 不能为空")
	}
	views, err := h.engine.GenerateForJob(ctx, jobID, req.Limit, normalizeLanguage(req.Language))
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Items: views, Count: len(views)}, nil
}

// HandleGenerateSweep 触发全量扫描生成
func (h *RecommendationHandler) HandleGenerateSweep(ctx context.Context, req GenerateBatchRequest) (*GenerateResponse, error) {
	views, err := h.engine.GenerateSweep(ctx, req.Limit, normalizeLanguage(req.Language))
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Items: views, Count: len(views)}, nil
}

// HandleList 按条件分页查询推荐
func (h *RecommendationHandler) HandleList(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) (*types.RecommendationPage, error) {
	if filter.Direction != "" &&
		filter.Direction != types.DirectionCandidateToJob &&
		filter.Direction != types.DirectionJobToCandidate {
		return nil, fmt.Errorf("非法的推荐方向: %s", filter.Direction)
	}
	return h.engine.List(ctx, filter, page)
}

// HandleGetByID 按ID获取推荐
func (h *RecommendationHandler) HandleGetByID(ctx context.Context, id string) (*types.RecommendationView, error) {
	if id == "" {
		return nil, fmt.Errorf("推荐ID不能为空")
	}
	return h.engine.GetByID(ctx, id)
}

// HandleUpdate 更新推荐的互动字段
func (h *RecommendationHandler) HandleUpdate(ctx context.Context, id string, update types.RecommendationUpdate) (*types.RecommendationView, error) {
	if id == "" {
		return nil, fmt.Errorf("推荐ID不能为空")
	}
	if update.FeedbackRating != nil && (*update.FeedbackRating < 1 || *update.FeedbackRating > 5) {
		return nil, fmt.Errorf("反馈评分必须在 1-5 之间")
	}
	return h.engine.Update(ctx, id, update)
}

// HandleStats 返回推荐汇总统计
func (h *RecommendationHandler) HandleStats(ctx context.Context) (*types.MatchStats, error) {
	return h.engine.Stats(ctx)
}

// HandleCleanup 清理过期的非活跃推荐
func (h *RecommendationHandler) HandleCleanup(ctx context.Context, req CleanupRequest) (*CleanupResponse, error) {
	deleted, err := h.engine.Cleanup(ctx, req.OlderThanDays)
	if err != nil {
		return nil, err
	}
	return &CleanupResponse{Deleted: deleted}, nil
}

// HandleHealth 引擎自身健康检查
func (h *RecommendationHandler) HandleHealth(ctx context.Context) error {
	return h.engine.HealthCheck(ctx)
}

// HandleScorerHealth 外部评分服务健康检查
func (h *RecommendationHandler) HandleScorerHealth(ctx context.Context) types.HealthStatus {
	return h.engine.ScorerHealthCheck(ctx)
}

// HandleSupportedLanguages 返回提示词支持的语言列表
func (h *RecommendationHandler) HandleSupportedLanguages() []string {
	return h.engine.SupportedLanguages()
}

// IsNotFound 判断错误是否应映射为404
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
