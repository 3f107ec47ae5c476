package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"match-engine-go/internal/config"
	"match-engine-go/internal/scorer"
	"match-engine-go/internal/storage"
	"match-engine-go/internal/storage/models"
	"match-engine-go/internal/types"
)

// ---- 测试替身 ----

type fakeCandidateStore struct {
	byID      map[string]*models.Candidate
	active    []models.Candidate
	lastLimit int
}

func (f *fakeCandidateStore) GetCandidateByID(ctx context.Context, id string) (*models.Candidate, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCandidateStore) ListActiveCandidates(ctx context.Context, limit int) ([]models.Candidate, error) {
	f.lastLimit = limit
	if limit > 0 && len(f.active) > limit {
		return f.active[:limit], nil
	}
	return f.active, nil
}

type fakeJobStore struct {
	byID      map[string]*models.Job
	active    []models.Job
	lastLimit int
}

func (f *fakeJobStore) GetJobByID(ctx context.Context, id string) (*models.Job, error) {
	if j, ok := f.byID[id]; ok {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeJobStore) ListActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	f.lastLimit = limit
	if limit > 0 && len(f.active) > limit {
		return f.active[:limit], nil
	}
	return f.active, nil
}

type fakeRecStore struct {
	existingPairs map[string]struct{}
	// conflictPairs 模拟插入时撞上活跃行唯一索引被跳过的配对
	conflictPairs map[string]struct{}
	inserted      []*models.Recommendation
	outbox        []*models.OutboxMessage
	insertCalls   int

	byID        map[string]*models.Recommendation
	lastUpdates map[string]interface{}

	stats      *types.MatchStats
	statsCalls int

	cleanupCutoff time.Time
	cleanupCount  int64
	countErr      error
}

func (f *fakeRecStore) ListActivePairs(ctx context.Context, candidateIDs, jobIDs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for k := range f.existingPairs {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeRecStore) InsertRecommendations(ctx context.Context, recs []*models.Recommendation, outboxFor func(*models.Recommendation) (*models.OutboxMessage, error)) ([]*models.Recommendation, error) {
	f.insertCalls++
	inserted := make([]*models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if _, conflict := f.conflictPairs[rec.CandidateID+"-"+rec.JobID]; conflict {
			continue
		}
		f.inserted = append(f.inserted, rec)
		inserted = append(inserted, rec)
		if outboxFor != nil {
			msg, err := outboxFor(rec)
			if err != nil {
				return nil, err
			}
			if msg != nil {
				f.outbox = append(f.outbox, msg)
			}
		}
	}
	return inserted, nil
}

func (f *fakeRecStore) ListRecommendations(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) ([]models.Recommendation, int64, error) {
	return nil, 0, nil
}

func (f *fakeRecStore) GetRecommendationByID(ctx context.Context, id string) (*models.Recommendation, error) {
	if rec, ok := f.byID[id]; ok {
		return rec, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecStore) UpdateRecommendation(ctx context.Context, id string, updates map[string]interface{}) error {
	rec, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.lastUpdates = updates
	if v, ok := updates["is_viewed"].(bool); ok {
		rec.IsViewed = v
	}
	if v, ok := updates["is_contacted"].(bool); ok {
		rec.IsContacted = v
	}
	return nil
}

func (f *fakeRecStore) GetRecommendationStats(ctx context.Context, highQualityFloor float64) (*types.MatchStats, error) {
	f.statsCalls++
	return f.stats, nil
}

func (f *fakeRecStore) CleanupInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cleanupCutoff = cutoff
	return f.cleanupCount, nil
}

func (f *fakeRecStore) CountRecommendations(ctx context.Context) (int64, error) {
	return 0, f.countErr
}

type fakeStatsCache struct {
	cached      *types.MatchStats
	cacheWrites int
	invalidated int
	lockHeld    bool
	released    int
}

func (f *fakeStatsCache) GetCachedStats(ctx context.Context) (*types.MatchStats, error) {
	if f.cached == nil {
		return nil, storage.ErrNotFound
	}
	return f.cached, nil
}

func (f *fakeStatsCache) CacheStats(ctx context.Context, stats *types.MatchStats) error {
	f.cacheWrites++
	f.cached = stats
	return nil
}

func (f *fakeStatsCache) InvalidateStats(ctx context.Context) error {
	f.invalidated++
	f.cached = nil
	return nil
}

func (f *fakeStatsCache) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if f.lockHeld {
		return "", nil
	}
	f.lockHeld = true
	return "test-lock-token", nil
}

func (f *fakeStatsCache) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	f.released++
	f.lockHeld = false
	return true, nil
}

// stubScorer 按岗位ID返回预设分数的评分器
type stubScorer struct {
	scoreByJob map[string]float64
	errByJob   map[string]error
}

func (s *stubScorer) Name() string { return "stub" }

func (s *stubScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	if err, ok := s.errByJob[job.JobID]; ok {
		return nil, err
	}
	overall := s.scoreByJob[job.JobID]
	return &types.MatchScore{
		Overall:    overall,
		Skills:     types.SkillsMatch{Score: overall},
		Experience: types.ExperienceMatch{Score: overall},
		Location:   types.LocationMatch{Score: overall},
		Salary:     types.SalaryMatch{Score: overall},
		Rationale:  "预设评分",
		Metadata:   types.ScoringMetadata{ModelIdentifier: "stub", Confidence: 0.9},
	}, nil
}

// ---- 构造辅助 ----

func testCandidate(id string, skills []string, years int, location string) models.Candidate {
	sj, _ := models.ToJSON(skills)
	return models.Candidate{
		CandidateID:     id,
		Name:            "候选人-" + id,
		Email:           id + "@example.com",
		Role:            "candidate",
		SkillsJSON:      sj,
		ExperienceYears: years,
		Location:        location,
		IsActive:        true,
	}
}

func testJob(id, title string) models.Job {
	return models.Job{
		JobID:              id,
		JobTitle:           title,
		Company:            "测试公司",
		RequiredSkillsText: "python, sql",
		ExperienceLevel:    "junior",
		Location:           "remote",
		SalaryMin:          50000,
		SalaryMax:          70000,
		Currency:           "USD",
		Status:             "ACTIVE",
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Matching.ScoreWorkers = 2
	cfg.Matching.DefaultLimit = 10
	cfg.Matching.SweepDirection = "candidate_to_job"
	cfg.RabbitMQ.MatchEventsExchange = "match.events.exchange"
	cfg.RabbitMQ.RecommendationRoutingKey = "recommendation.generated"
	cfg.Scorer.HealthProbeTimeout = "5s"
	return cfg
}

type testFixture struct {
	engine     *Engine
	candidates *fakeCandidateStore
	jobs       *fakeJobStore
	recs       *fakeRecStore
	cache      *fakeStatsCache
}

func newFixture(t *testing.T, sc scorer.Scorer) *testFixture {
	t.Helper()

	c1 := testCandidate("cand-1", []string{"python", "sql"}, 2, "remote")
	candidates := &fakeCandidateStore{
		byID:   map[string]*models.Candidate{"cand-1": &c1},
		active: []models.Candidate{c1},
	}

	j1 := testJob("job-1", "数据工程师")
	jobs := &fakeJobStore{
		byID:   map[string]*models.Job{"job-1": &j1},
		active: []models.Job{j1},
	}

	recs := &fakeRecStore{
		existingPairs: make(map[string]struct{}),
		byID:          make(map[string]*models.Recommendation),
	}
	cache := &fakeStatsCache{}

	eng, err := New(candidates, jobs, recs, sc, testConfig(), WithStatsCache(cache))
	require.NoError(t, err)

	return &testFixture{engine: eng, candidates: candidates, jobs: jobs, recs: recs, cache: cache}
}

// ---- 生成模式 ----

func TestGeneratePairPersistsRecommendation(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{"job-1": 86.5}}
	f := newFixture(t, sc)

	views, err := f.engine.GeneratePair(context.Background(), "cand-1", "job-1", "", "zh")
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, types.DirectionCandidateToJob, view.Direction, "方向缺省为以候选人为主体")
	assert.Equal(t, "cand-1", view.CandidateID)
	assert.Equal(t, "job-1", view.JobID)
	assert.Equal(t, 86.5, view.OverallScore)
	assert.Equal(t, types.CategoryGood, view.ScoreCategory)
	assert.Equal(t, "候选人-cand-1", view.CandidateName)
	assert.Equal(t, "数据工程师", view.JobTitle)
	assert.NotEmpty(t, view.ID)

	require.Len(t, f.recs.inserted, 1)
	rec := f.recs.inserted[0]
	assert.True(t, rec.IsActive)
	require.NotNil(t, rec.ActiveFlag)
	assert.True(t, *rec.ActiveFlag)

	// 事件与推荐同事务入发件箱
	require.Len(t, f.recs.outbox, 1)
	msg := f.recs.outbox[0]
	assert.Equal(t, storage.EventTypeRecommendationGenerated, msg.EventType)
	assert.Equal(t, "match.events.exchange", msg.TargetExchange)
	assert.Equal(t, rec.RecommendationID, msg.AggregateID)
	assert.Contains(t, msg.Payload, `"scorer_name":"stub"`)

	// 写入后统计缓存被失效
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestGeneratePairSkipsExistingActivePair(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{"job-1": 90}}
	f := newFixture(t, sc)
	f.recs.existingPairs["cand-1-job-1"] = struct{}{}

	views, err := f.engine.GeneratePair(context.Background(), "cand-1", "job-1", types.DirectionCandidateToJob, "zh")
	require.NoError(t, err)
	assert.Empty(t, views, "已有活跃推荐的配对不再生成")
	assert.Equal(t, 0, f.recs.insertCalls, "过滤后为空时不应发起写操作")
}

func TestGeneratePairUnknownEntities(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{}}
	f := newFixture(t, sc)

	_, err := f.engine.GeneratePair(context.Background(), "no-such", "job-1", "", "zh")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = f.engine.GeneratePair(context.Background(), "cand-1", "no-such", "", "zh")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGeneratePairInvalidDirection(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	_, err := f.engine.GeneratePair(context.Background(), "cand-1", "job-1", "SIDEWAYS", "zh")
	assert.Error(t, err)
}

func TestGeneratePairScorerHardFailurePropagates(t *testing.T) {
	hard := errors.New("评分服务响应格式非法")
	sc := &stubScorer{errByJob: map[string]error{"job-1": hard}}
	f := newFixture(t, sc)

	_, err := f.engine.GeneratePair(context.Background(), "cand-1", "job-1", "", "zh")
	require.Error(t, err)
	assert.ErrorIs(t, err, hard)
	assert.Empty(t, f.recs.inserted)
}

func TestGenerateForCandidateThresholdSortAndLimit(t *testing.T) {
	jobs := []models.Job{
		testJob("job-a", "A"), testJob("job-b", "B"), testJob("job-c", "C"),
		testJob("job-d", "D"), testJob("job-e", "E"), testJob("job-f", "F"),
	}
	sc := &stubScorer{scoreByJob: map[string]float64{
		"job-a": 72, "job-b": 95, "job-c": 69.9, // 低于70被拒绝
		"job-d": 88, "job-e": 70, "job-f": 81,
	}}
	f := newFixture(t, sc)
	f.jobs.active = jobs

	views, err := f.engine.GenerateForCandidate(context.Background(), "cand-1", 3, "zh")
	require.NoError(t, err)

	// 超额抓取2倍limit的岗位
	assert.Equal(t, 6, f.jobs.lastLimit)

	// 准入的5条中取分数最高的3条，降序
	require.Len(t, views, 3)
	assert.Equal(t, 95.0, views[0].OverallScore)
	assert.Equal(t, 88.0, views[1].OverallScore)
	assert.Equal(t, 81.0, views[2].OverallScore)
	for _, v := range views {
		assert.GreaterOrEqual(t, v.OverallScore, 70.0)
		assert.Equal(t, types.DirectionCandidateToJob, v.Direction)
	}
}

func TestGenerateForCandidateSkipsFailedPairs(t *testing.T) {
	jobs := []models.Job{testJob("job-a", "A"), testJob("job-b", "B")}
	sc := &stubScorer{
		scoreByJob: map[string]float64{"job-b": 85},
		errByJob:   map[string]error{"job-a": errors.New("invalid api key")},
	}
	f := newFixture(t, sc)
	f.jobs.active = jobs

	views, err := f.engine.GenerateForCandidate(context.Background(), "cand-1", 5, "zh")
	require.NoError(t, err, "单配对评分失败不应中断批次")
	require.Len(t, views, 1)
	assert.Equal(t, "job-b", views[0].JobID)
}

func TestGenerateForCandidateAllFailedReturnsEmptySuccess(t *testing.T) {
	jobs := []models.Job{testJob("job-a", "A"), testJob("job-b", "B")}
	sc := &stubScorer{errByJob: map[string]error{
		"job-a": errors.New("connection refused"),
		"job-b": errors.New("connection refused"),
	}}
	f := newFixture(t, sc)
	f.jobs.active = jobs

	views, err := f.engine.GenerateForCandidate(context.Background(), "cand-1", 5, "zh")
	require.NoError(t, err, "评分全部失败时批量端点返回空的成功结果")
	assert.Empty(t, views)
	assert.Equal(t, 0, f.recs.insertCalls)
}

func TestGenerateForJobSymmetric(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{"job-1": 91}}
	f := newFixture(t, sc)
	f.candidates.active = []models.Candidate{
		testCandidate("cand-1", []string{"python"}, 2, "remote"),
		testCandidate("cand-2", []string{"go"}, 5, "Astana"),
	}

	views, err := f.engine.GenerateForJob(context.Background(), "job-1", 2, "zh")
	require.NoError(t, err)

	assert.Equal(t, 4, f.candidates.lastLimit)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, types.DirectionJobToCandidate, v.Direction)
		assert.Equal(t, "job-1", v.JobID)
	}
}

func TestGenerateSweepIndexAlignedPairs(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{
		"job-a": 65, // 扫描阈值60，准入
		"job-b": 55, // 低于60，拒绝
	}}
	f := newFixture(t, sc)
	f.candidates.active = []models.Candidate{
		testCandidate("cand-1", []string{"python"}, 2, "remote"),
		testCandidate("cand-2", []string{"go"}, 5, "Astana"),
		testCandidate("cand-3", []string{"sql"}, 1, "Almaty"),
	}
	f.jobs.active = []models.Job{
		testJob("job-a", "A"), testJob("job-b", "B"),
		testJob("job-c", "C"), testJob("job-d", "D"),
	}

	views, err := f.engine.GenerateSweep(context.Background(), 2, "zh")
	require.NoError(t, err)

	// min(3候选人, 4岗位, limit=2) = 2 个下标对齐配对
	require.Len(t, views, 1)
	assert.Equal(t, "cand-1", views[0].CandidateID)
	assert.Equal(t, "job-a", views[0].JobID)
	assert.Equal(t, types.DirectionCandidateToJob, views[0].Direction, "固定方向策略生效")
	assert.GreaterOrEqual(t, views[0].OverallScore, 60.0)

	// 扫描结束后锁被释放
	assert.Equal(t, 1, f.cache.released)
	assert.False(t, f.cache.lockHeld)
}

func TestGenerateSweepLockBusy(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	f.cache.lockHeld = true

	_, err := f.engine.GenerateSweep(context.Background(), 5, "zh")
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.Equal(t, 0, f.recs.insertCalls)
}

func TestGenerateCancelledContextStopsDispatch(t *testing.T) {
	sc := &stubScorer{scoreByJob: map[string]float64{"job-1": 95}}
	f := newFixture(t, sc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	views, err := f.engine.GenerateForCandidate(ctx, "cand-1", 5, "zh")
	require.NoError(t, err)
	assert.Empty(t, views, "取消后不再派发新的评分任务")
}

// blockingScorer 每次评分都阻塞到闸门放行，用于模拟慢速评分中的批次取消
type blockingScorer struct {
	started chan struct{}
	gate    chan struct{}
}

func (s *blockingScorer) Name() string { return "blocking" }

func (s *blockingScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	s.started <- struct{}{}
	<-s.gate
	return &types.MatchScore{
		Overall:   95,
		Rationale: "慢速评分",
		Metadata:  types.ScoringMetadata{ModelIdentifier: "blocking", Confidence: 0.9},
	}, nil
}

func TestGenerateMidBatchCancelKeepsInFlightResults(t *testing.T) {
	sc := &blockingScorer{
		started: make(chan struct{}, 4),
		gate:    make(chan struct{}),
	}
	f := newFixture(t, sc)
	f.jobs.active = []models.Job{
		testJob("job-a", "A"), testJob("job-b", "B"),
		testJob("job-c", "C"), testJob("job-d", "D"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 两个工作协程进入评分后取消批次，再放行在途任务
	go func() {
		<-sc.started
		<-sc.started
		cancel()
		close(sc.gate)
	}()

	views, err := f.engine.GenerateForCandidate(ctx, "cand-1", 4, "zh")
	require.NoError(t, err, "取消只截断派发，不使批次整体失败")
	assert.GreaterOrEqual(t, len(views), 2, "在途的评分任务应完成并入库")
	assert.Less(t, len(views), 4, "取消后剩余配对不再派发")
}

func TestPersistBatchDropsInBatchDuplicates(t *testing.T) {
	f := newFixture(t, &stubScorer{})

	c1 := testCandidate("cand-1", nil, 1, "remote")
	j1 := testJob("job-1", "A")
	task := pairTask{candidate: &c1, job: &j1, direction: types.DirectionCandidateToJob}
	score := &types.MatchScore{Overall: 80, Rationale: "x"}

	first, err := buildRecommendation(task, score)
	require.NoError(t, err)
	second, err := buildRecommendation(task, score)
	require.NoError(t, err)

	views, err := f.engine.persistBatch(context.Background(), []*models.Recommendation{first, second})
	require.NoError(t, err)
	assert.Len(t, views, 1, "同一配对在批内只写入一次")
	assert.Len(t, f.recs.inserted, 1)
}

func TestPersistBatchConflictLoserExcluded(t *testing.T) {
	// 模拟预检与插入之间有并发写入者先落了同一配对:
	// 该行与活跃行唯一索引冲突被跳过，结果只含真正新插入的行
	f := newFixture(t, &stubScorer{})
	f.recs.conflictPairs = map[string]struct{}{"cand-1-job-1": {}}

	c1 := testCandidate("cand-1", nil, 1, "remote")
	j1 := testJob("job-1", "A")
	j2 := testJob("job-2", "B")
	score := &types.MatchScore{Overall: 80, Rationale: "x", Metadata: types.ScoringMetadata{ModelIdentifier: "stub"}}

	loser, err := buildRecommendation(pairTask{candidate: &c1, job: &j1, direction: types.DirectionCandidateToJob}, score)
	require.NoError(t, err)
	winner, err := buildRecommendation(pairTask{candidate: &c1, job: &j2, direction: types.DirectionCandidateToJob}, score)
	require.NoError(t, err)

	views, err := f.engine.persistBatch(context.Background(), []*models.Recommendation{loser, winner})
	require.NoError(t, err, "冲突跳过不是错误")
	require.Len(t, views, 1)
	assert.Equal(t, "job-2", views[0].JobID)

	// 被跳过的行不产生发件箱消息
	require.Len(t, f.recs.outbox, 1)
	assert.Equal(t, winner.RecommendationID, f.recs.outbox[0].AggregateID)
}

func TestPersistBatchAllConflictsReturnsEmpty(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	f.recs.conflictPairs = map[string]struct{}{"cand-1-job-1": {}}

	c1 := testCandidate("cand-1", nil, 1, "remote")
	j1 := testJob("job-1", "A")
	rec, err := buildRecommendation(
		pairTask{candidate: &c1, job: &j1, direction: types.DirectionCandidateToJob},
		&types.MatchScore{Overall: 80, Rationale: "x"},
	)
	require.NoError(t, err)

	views, err := f.engine.persistBatch(context.Background(), []*models.Recommendation{rec})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Empty(t, f.recs.outbox)
	assert.Equal(t, 0, f.cache.invalidated, "没有新插入的行时不失效统计缓存")
}

// ---- 查询与更新 ----

func seededRecommendation(t *testing.T) *models.Recommendation {
	t.Helper()
	c1 := testCandidate("cand-1", []string{"python"}, 2, "remote")
	j1 := testJob("job-1", "数据工程师")
	rec, err := buildRecommendation(
		pairTask{candidate: &c1, job: &j1, direction: types.DirectionCandidateToJob},
		&types.MatchScore{
			Overall:   82,
			Rationale: "测试推荐",
			Metadata:  types.ScoringMetadata{ModelIdentifier: "stub", Confidence: 0.9},
		},
	)
	require.NoError(t, err)
	return rec
}

func TestUpdateFirstViewStampsTimestamp(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	rec := seededRecommendation(t)
	f.recs.byID[rec.RecommendationID] = rec

	viewed := true
	_, err := f.engine.Update(context.Background(), rec.RecommendationID, types.RecommendationUpdate{IsViewed: &viewed})
	require.NoError(t, err)

	assert.Equal(t, true, f.recs.lastUpdates["is_viewed"])
	assert.Contains(t, f.recs.lastUpdates, "viewed_at", "首次置真应盖时间戳")

	// 再次置真不重复盖时间戳
	_, err = f.engine.Update(context.Background(), rec.RecommendationID, types.RecommendationUpdate{IsViewed: &viewed})
	require.NoError(t, err)
	assert.NotContains(t, f.recs.lastUpdates, "viewed_at")
}

func TestUpdateFeedbackOverwrites(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	rec := seededRecommendation(t)
	f.recs.byID[rec.RecommendationID] = rec

	rating := 4
	comment := "匹配度不错"
	_, err := f.engine.Update(context.Background(), rec.RecommendationID, types.RecommendationUpdate{
		FeedbackRating:  &rating,
		FeedbackComment: &comment,
	})
	require.NoError(t, err)

	raw, ok := f.recs.lastUpdates["feedback_json"].(datatypes.JSON)
	require.True(t, ok)
	assert.Contains(t, string(raw), "匹配度不错")
	assert.Contains(t, string(raw), `"rating":4`)
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	viewed := true
	_, err := f.engine.Update(context.Background(), "no-such", types.RecommendationUpdate{IsViewed: &viewed})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStatsReadThroughCache(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	f.recs.stats = &types.MatchStats{TotalActive: 42, AverageScore: 77.5}

	// 首次未命中缓存，查库并回填
	stats, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalActive)
	assert.Equal(t, 1, f.recs.statsCalls)
	assert.Equal(t, 1, f.cache.cacheWrites)

	// 第二次命中缓存，不再查库
	_, err = f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.recs.statsCalls)
}

// ---- 维护 ----

func TestCleanupDefaultsAndCutoff(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	f.recs.cleanupCount = 7

	deleted, err := f.engine.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	// 非正参数回落到默认30天
	expected := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, f.recs.cleanupCutoff, time.Minute)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	assert.NoError(t, f.engine.HealthCheck(context.Background()))

	f.recs.countErr = errors.New("connection refused")
	assert.Error(t, f.engine.HealthCheck(context.Background()))
}

func TestScorerHealthCheckWithoutProber(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	assert.Equal(t, types.HealthUnhealthy, f.engine.ScorerHealthCheck(context.Background()))
}

func TestSupportedLanguages(t *testing.T) {
	f := newFixture(t, &stubScorer{})
	assert.Equal(t, []string{"zh", "en", "ru", "kk"}, f.engine.SupportedLanguages())
}
