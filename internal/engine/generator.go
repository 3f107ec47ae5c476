package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"match-engine-go/internal/constants"
	"match-engine-go/internal/storage/models"
	"match-engine-go/internal/tracing"
	"match-engine-go/internal/types"
)

// pairTask 一次待评分的候选人-岗位配对
type pairTask struct {
	candidate *models.Candidate
	job       *models.Job
	direction types.MatchDirection
}

// scoredPair 评分完成的配对
type scoredPair struct {
	task  pairTask
	score *types.MatchScore
}

// GeneratePair 为指定的候选人-岗位配对生成推荐，不设准入阈值。
// 单配对模式下评分的硬失败直接上抛；配对已有活跃推荐时返回空结果且不写库。
func (e *Engine) GeneratePair(ctx context.Context, candidateID, jobID string, direction types.MatchDirection, language string) ([]types.RecommendationView, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.GeneratePair")
	defer span.End()
	span.SetAttributes(
		attribute.String("candidate_id", candidateID),
		attribute.String("job_id", jobID),
	)

	dir, err := normalizeDirection(direction)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	candidate, err := e.candidates.GetCandidateByID(ctx, candidateID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	job, err := e.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	score, err := e.matchScorer.Score(ctx, candidate.ToProfile(), job.ToProfile(), language)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeScorer)
		return nil, fmt.Errorf("配对评分失败: %w", err)
	}
	span.SetAttributes(
		attribute.Float64("match.overall_score", score.Overall),
		attribute.String("match.rationale", tracing.SafeRationale(score.Rationale)),
	)

	rec, err := buildRecommendation(pairTask{candidate: candidate, job: job, direction: dir}, score)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, err
	}

	views, err := e.persistBatch(ctx, []*models.Recommendation{rec})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return views, nil
}

// GenerateForCandidate 为单个候选人生成岗位推荐。
// 超额抓取2倍的活跃岗位参与评分，按阈值准入后取分数最高的limit条。
func (e *Engine) GenerateForCandidate(ctx context.Context, candidateID string, limit int, language string) ([]types.RecommendationView, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.GenerateForCandidate")
	defer span.End()
	span.SetAttributes(attribute.String("candidate_id", candidateID))

	limit = e.normalizeLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	candidate, err := e.candidates.GetCandidateByID(ctx, candidateID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	jobs, err := e.jobs.ListActiveJobs(ctx, limit*constants.OverFetchFactor)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	tasks := make([]pairTask, 0, len(jobs))
	for i := range jobs {
		tasks = append(tasks, pairTask{
			candidate: candidate,
			job:       &jobs[i],
			direction: types.DirectionCandidateToJob,
		})
	}

	return e.scoreAdmitPersist(ctx, span, tasks, constants.TargetedMinScore, limit, language)
}

// GenerateForJob 为单个岗位生成候选人推荐，与按候选人模式对称
func (e *Engine) GenerateForJob(ctx context.Context, jobID string, limit int, language string) ([]types.RecommendationView, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.GenerateForJob")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	limit = e.normalizeLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	job, err := e.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	candidates, err := e.candidates.ListActiveCandidates(ctx, limit*constants.OverFetchFactor)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	tasks := make([]pairTask, 0, len(candidates))
	for i := range candidates {
		tasks = append(tasks, pairTask{
			candidate: &candidates[i],
			job:       job,
			direction: types.DirectionJobToCandidate,
		})
	}

	return e.scoreAdmitPersist(ctx, span, tasks, constants.TargetedMinScore, limit, language)
}

// GenerateSweep 全量扫描: 两侧各取一池活跃实体，按下标对齐配对，用放宽的阈值探索性生成。
// 扫描期间持有分布式锁，并发触发的第二次扫描得到 ErrSweepInProgress。
func (e *Engine) GenerateSweep(ctx context.Context, limit int, language string) ([]types.RecommendationView, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.GenerateSweep")
	defer span.End()

	limit = e.normalizeLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	if e.cache != nil {
		token, err := e.cache.AcquireLock(ctx, constants.KeySweepLock, constants.SweepLockTTL)
		if err != nil {
			// 锁服务不可用时照常执行，重复扫描由唯一索引兜底
			e.log.Warn().Err(err).Msg("获取扫描锁失败，继续无锁执行")
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		} else if token == "" {
			tracing.RecordError(span, ErrSweepInProgress, tracing.ErrorTypeValidation)
			return nil, ErrSweepInProgress
		} else {
			defer func() {
				if _, err := e.cache.ReleaseLock(context.WithoutCancel(ctx), constants.KeySweepLock, token); err != nil {
					e.log.Warn().Err(err).Msg("释放扫描锁失败")
				}
			}()
		}
	}

	candidates, err := e.candidates.ListActiveCandidates(ctx, constants.SweepPoolSize)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	jobs, err := e.jobs.ListActiveJobs(ctx, constants.SweepPoolSize)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	n := len(candidates)
	if len(jobs) < n {
		n = len(jobs)
	}
	if limit < n {
		n = limit
	}

	tasks := make([]pairTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, pairTask{
			candidate: &candidates[i],
			job:       &jobs[i],
			direction: e.sweepDirection(),
		})
	}
	span.SetAttributes(attribute.Int("sweep.pair_count", len(tasks)))

	return e.scoreAdmitPersist(ctx, span, tasks, constants.SweepMinScore, limit, language)
}

// sweepDirection 按配置策略为扫描配对选择方向，默认逐对伪随机
func (e *Engine) sweepDirection() types.MatchDirection {
	switch e.cfg.Matching.SweepDirection {
	case "candidate_to_job":
		return types.DirectionCandidateToJob
	case "job_to_candidate":
		return types.DirectionJobToCandidate
	default:
		if rand.Intn(2) == 0 {
			return types.DirectionCandidateToJob
		}
		return types.DirectionJobToCandidate
	}
}

// scoreAdmitPersist 批量模式的公共尾部: 并发评分、阈值准入、按分排序截断、持久化。
// 评分全军覆没时返回空的成功结果，调用方把"暂无推荐"当作正常状态。
func (e *Engine) scoreAdmitPersist(ctx context.Context, span trace.Span, tasks []pairTask, minScore float64, limit int, language string) ([]types.RecommendationView, error) {
	scored := e.scorePairs(ctx, tasks, language)
	admitted := admitAndRank(scored, minScore, limit)
	span.SetAttributes(
		attribute.Int("match.scored_count", len(scored)),
		attribute.Int("match.admitted_count", len(admitted)),
	)

	recs := make([]*models.Recommendation, 0, len(admitted))
	for _, sp := range admitted {
		rec, err := buildRecommendation(sp.task, sp.score)
		if err != nil {
			e.log.Warn().Err(err).
				Str("candidate_id", sp.task.candidate.CandidateID).
				Str("job_id", sp.task.job.JobID).
				Msg("组装推荐记录失败，跳过该配对")
			continue
		}
		recs = append(recs, rec)
	}

	views, err := e.persistBatch(ctx, recs)
	if err != nil {
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return views, nil
}

// scorePairs 有界并发地为全部配对评分。
// 单配对失败只记录并跳过；上下文取消后停止派发新任务，已派发的任务自行完成或超时。
func (e *Engine) scorePairs(ctx context.Context, tasks []pairTask, language string) []scoredPair {
	workers := e.cfg.Matching.ScoreWorkers
	if workers <= 0 {
		workers = constants.DefaultScoreWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make([]scoredPair, 0, len(tasks))

	dispatched := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			e.log.Warn().Err(ctx.Err()).Int("undispatched", len(tasks)-dispatched).
				Msg("生成被取消，停止派发新的评分任务")
			break
		}
		dispatched++

		wg.Add(1)
		sem <- struct{}{}
		go func(t pairTask) {
			defer wg.Done()
			defer func() { <-sem }()

			score, err := e.matchScorer.Score(ctx, t.candidate.ToProfile(), t.job.ToProfile(), language)
			if err != nil {
				e.log.Warn().Err(err).
					Str("candidate_id", t.candidate.CandidateID).
					Str("job_id", t.job.JobID).
					Msg("配对评分失败，跳过该配对")
				return
			}

			mu.Lock()
			out = append(out, scoredPair{task: t, score: score})
			mu.Unlock()
		}(task)
	}

	wg.Wait()
	return out
}

// admitAndRank 按准入阈值过滤，按总分降序排序后截断到limit
func admitAndRank(scored []scoredPair, minScore float64, limit int) []scoredPair {
	admitted := make([]scoredPair, 0, len(scored))
	for _, sp := range scored {
		if sp.score.Overall >= minScore {
			admitted = append(admitted, sp)
		}
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].score.Overall > admitted[j].score.Overall
	})

	if limit > 0 && len(admitted) > limit {
		admitted = admitted[:limit]
	}
	return admitted
}

// buildRecommendation 把评分结果落成推荐实体，ID用UUIDv7保证按时间有序
func buildRecommendation(t pairTask, score *types.MatchScore) (*models.Recommendation, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成推荐ID失败: %w", err)
	}

	skillsJSON, err := models.ToJSON(score.Skills)
	if err != nil {
		return nil, fmt.Errorf("序列化技能子记录失败: %w", err)
	}
	expJSON, err := models.ToJSON(score.Experience)
	if err != nil {
		return nil, fmt.Errorf("序列化经验子记录失败: %w", err)
	}
	locJSON, err := models.ToJSON(score.Location)
	if err != nil {
		return nil, fmt.Errorf("序列化地点子记录失败: %w", err)
	}
	salaryJSON, err := models.ToJSON(score.Salary)
	if err != nil {
		return nil, fmt.Errorf("序列化薪资子记录失败: %w", err)
	}
	metaJSON, err := models.ToJSON(score.Metadata)
	if err != nil {
		return nil, fmt.Errorf("序列化评分元数据失败: %w", err)
	}

	active := true
	return &models.Recommendation{
		RecommendationID: id.String(),
		Direction:        string(t.direction),
		CandidateID:      t.candidate.CandidateID,
		JobID:            t.job.JobID,
		OverallScore:     score.Overall,
		ScoreCategory:    string(types.CategoryForScore(score.Overall)),
		SkillsMatchJSON:  skillsJSON,
		ExpMatchJSON:     expJSON,
		LocMatchJSON:     locJSON,
		SalaryMatchJSON:  salaryJSON,
		Rationale:        score.Rationale,
		MetadataJSON:     metaJSON,
		IsActive:         true,
		ActiveFlag:       &active,
		Candidate:        t.candidate,
		Job:              t.job,
	}, nil
}
