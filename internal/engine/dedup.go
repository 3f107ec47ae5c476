package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"match-engine-go/internal/storage"
	"match-engine-go/internal/storage/models"
	"match-engine-go/internal/types"
)

// persistBatch 去重与持久化闸门。
// 把批次里已有活跃推荐的配对(以及批内重复的配对)过滤掉，余下的在单个事务中写入；
// 过滤后为空则不发起任何写操作。返回新插入行的投影，保持插入顺序。
// 预检与插入之间的并发竞态由活跃行唯一索引加冲突跳过兜底。
func (e *Engine) persistBatch(ctx context.Context, recs []*models.Recommendation) ([]types.RecommendationView, error) {
	if len(recs) == 0 {
		return []types.RecommendationView{}, nil
	}

	candidateIDs, jobIDs := collectDistinctIDs(recs)
	existing, err := e.recs.ListActivePairs(ctx, candidateIDs, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("去重预检失败: %w", err)
	}

	seen := make(map[string]struct{}, len(recs))
	fresh := make([]*models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		key := rec.CandidateID + "-" + rec.JobID
		if _, dup := existing[key]; dup {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, rec)
	}

	if len(fresh) == 0 {
		e.log.Debug().Int("batch_size", len(recs)).Msg("批次全部为已存在的配对，跳过写入")
		return []types.RecommendationView{}, nil
	}

	inserted, err := e.recs.InsertRecommendations(ctx, fresh, e.outboxFor)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && len(inserted) > 0 {
		if err := e.cache.InvalidateStats(ctx); err != nil {
			e.log.Warn().Err(err).Msg("推荐写入后失效统计缓存失败")
		}
	}

	views := make([]types.RecommendationView, 0, len(inserted))
	for _, rec := range inserted {
		views = append(views, rec.ToView())
	}
	return views, nil
}

// outboxFor 为新插入的推荐构建发件箱消息，与插入同事务落库。
// 未配置事件exchange时不产生消息。
func (e *Engine) outboxFor(rec *models.Recommendation) (*models.OutboxMessage, error) {
	if e.cfg.RabbitMQ.MatchEventsExchange == "" {
		return nil, nil
	}

	var meta types.ScoringMetadata
	_ = json.Unmarshal(rec.MetadataJSON, &meta)

	event := storage.RecommendationGeneratedEvent{
		RecommendationID: rec.RecommendationID,
		CandidateID:      rec.CandidateID,
		JobID:            rec.JobID,
		Direction:        rec.Direction,
		OverallScore:     rec.OverallScore,
		ScoreCategory:    rec.ScoreCategory,
		ScorerName:       meta.ModelIdentifier,
		GeneratedAt:      time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化推荐事件失败: %w", err)
	}

	return &models.OutboxMessage{
		AggregateID:      rec.RecommendationID,
		EventType:        storage.EventTypeRecommendationGenerated,
		Payload:          string(payload),
		TargetExchange:   e.cfg.RabbitMQ.MatchEventsExchange,
		TargetRoutingKey: e.cfg.RabbitMQ.RecommendationRoutingKey,
		Status:           "PENDING",
	}, nil
}

// collectDistinctIDs 收集批次引用的候选人与岗位ID集合
func collectDistinctIDs(recs []*models.Recommendation) ([]string, []string) {
	candidateSet := make(map[string]struct{}, len(recs))
	jobSet := make(map[string]struct{}, len(recs))
	candidateIDs := make([]string, 0, len(recs))
	jobIDs := make([]string, 0, len(recs))

	for _, rec := range recs {
		if _, ok := candidateSet[rec.CandidateID]; !ok {
			candidateSet[rec.CandidateID] = struct{}{}
			candidateIDs = append(candidateIDs, rec.CandidateID)
		}
		if _, ok := jobSet[rec.JobID]; !ok {
			jobSet[rec.JobID] = struct{}{}
			jobIDs = append(jobIDs, rec.JobID)
		}
	}
	return candidateIDs, jobIDs
}
