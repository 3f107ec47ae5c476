package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"match-engine-go/internal/constants"
	"match-engine-go/internal/storage"
	"match-engine-go/internal/types"
)

// List 按条件分页查询活跃推荐，默认按总分降序、创建时间降序
func (e *Engine) List(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) (*types.RecommendationPage, error) {
	if page.Limit <= 0 {
		page.Limit = e.normalizeLimit(page.Limit)
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	recs, total, err := e.recs.ListRecommendations(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	items := make([]types.RecommendationView, 0, len(recs))
	for i := range recs {
		items = append(items, recs[i].ToView())
	}

	return &types.RecommendationPage{
		Items:   items,
		Total:   total,
		HasMore: int64(page.Offset+len(items)) < total,
	}, nil
}

// GetByID 按ID获取单条推荐，未找到时透传 gorm.ErrRecordNotFound
func (e *Engine) GetByID(ctx context.Context, id string) (*types.RecommendationView, error) {
	rec, err := e.recs.GetRecommendationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := rec.ToView()
	return &view, nil
}

// Update 更新推荐的互动字段。
// isViewed/isContacted 首次置真时盖上对应时间戳；反馈字段整体覆盖并刷新反馈时间。
func (e *Engine) Update(ctx context.Context, id string, update types.RecommendationUpdate) (*types.RecommendationView, error) {
	rec, err := e.recs.GetRecommendationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := make(map[string]interface{})

	if update.IsViewed != nil {
		updates["is_viewed"] = *update.IsViewed
		if *update.IsViewed && !rec.IsViewed {
			updates["viewed_at"] = now
		}
	}
	if update.IsContacted != nil {
		updates["is_contacted"] = *update.IsContacted
		if *update.IsContacted && !rec.IsContacted {
			updates["contacted_at"] = now
		}
	}
	if update.FeedbackRating != nil || update.FeedbackComment != nil {
		fb := types.FeedbackView{CreatedAt: now}
		if update.FeedbackRating != nil {
			fb.Rating = *update.FeedbackRating
		}
		if update.FeedbackComment != nil {
			fb.Comment = *update.FeedbackComment
		}
		raw, err := json.Marshal(fb)
		if err != nil {
			return nil, fmt.Errorf("序列化反馈失败: %w", err)
		}
		updates["feedback_json"] = datatypes.JSON(raw)
	}

	if len(updates) == 0 {
		view := rec.ToView()
		return &view, nil
	}

	if err := e.recs.UpdateRecommendation(ctx, id, updates); err != nil {
		return nil, err
	}

	refreshed, err := e.recs.GetRecommendationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := refreshed.ToView()
	return &view, nil
}

// Stats 返回活跃推荐的汇总统计，优先读缓存，未命中时查库并回填
func (e *Engine) Stats(ctx context.Context) (*types.MatchStats, error) {
	if e.cache != nil {
		cached, err := e.cache.GetCachedStats(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			e.log.Warn().Err(err).Msg("读取统计缓存失败，回落到数据库")
		}
	}

	stats, err := e.recs.GetRecommendationStats(ctx, constants.HighQualityThreshold)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.CacheStats(ctx, stats); err != nil {
			e.log.Warn().Err(err).Msg("回填统计缓存失败")
		}
	}
	return stats, nil
}

// SupportedLanguages 返回提示词支持的语言列表
func (e *Engine) SupportedLanguages() []string {
	return constants.SupportedLanguages
}
