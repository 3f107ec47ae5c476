package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"match-engine-go/internal/config"
	"match-engine-go/internal/storage/models"
	"match-engine-go/internal/types"
)

var mysqlTracer = otel.Tracer("match-engine-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 创建一个静默的logger以关闭迁移期间的SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Candidate{},
		&models.Job{},
		&models.Recommendation{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// GetCandidateByID 获取指定ID的活跃候选人，只接受 role=candidate 的记录
func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).
		Where("candidate_id = ? AND role = ? AND is_active = ?", candidateID, "candidate", true).
		First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	return &candidate, nil
}

// ListActiveCandidates 列出活跃候选人，limit<=0 时不限制数量
func (m *MySQL) ListActiveCandidates(ctx context.Context, limit int) ([]models.Candidate, error) {
	var candidates []models.Candidate
	query := m.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", "candidate", true).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("查询活跃候选人列表失败: %w", err)
	}
	return candidates, nil
}

// GetJobByID 获取指定ID的活跃岗位
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := m.db.WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, "ACTIVE").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}
	return &job, nil
}

// ListActiveJobs 列出状态为ACTIVE的岗位，limit<=0 时不限制数量
func (m *MySQL) ListActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	query := m.db.WithContext(ctx).
		Where("status = ?", "ACTIVE").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("查询活跃岗位列表失败: %w", err)
	}
	return jobs, nil
}

// ListActivePairs 一次性取回给定候选人/岗位集合内所有活跃推荐的配对键。
// 返回 map 的键格式为 "candidateId-jobId"，用于写入前的去重过滤。
// 去重以配对为粒度，不区分方向: 同一配对已有任一方向的活跃推荐即视为重复。
func (m *MySQL) ListActivePairs(ctx context.Context, candidateIDs, jobIDs []string) (map[string]struct{}, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.ListActivePairs",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.sql.table", "recommendations"),
		attribute.Int("candidate_ids.count", len(candidateIDs)),
		attribute.Int("job_ids.count", len(jobIDs)),
	)

	pairs := make(map[string]struct{})
	if len(candidateIDs) == 0 || len(jobIDs) == 0 {
		span.SetStatus(codes.Ok, "empty id set")
		return pairs, nil
	}

	type pairRow struct {
		CandidateID string
		JobID       string
	}
	var rows []pairRow
	err := m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Select("candidate_id", "job_id").
		Where("candidate_id IN ? AND job_id IN ? AND is_active = ?", candidateIDs, jobIDs, true).
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("查询已存在的活跃推荐配对失败: %w", err)
	}

	for _, row := range rows {
		pairs[row.CandidateID+"-"+row.JobID] = struct{}{}
	}

	span.SetAttributes(attribute.Int("pairs.count", len(pairs)))
	span.SetStatus(codes.Ok, "")
	return pairs, nil
}

// InsertRecommendations 在单个事务中批量插入推荐记录。
// 与活跃行唯一索引冲突的记录被静默跳过，返回值只包含真正新插入的行。
// 任何非冲突错误会回滚整个事务，保持全有或全无语义。
// outboxFor 非nil时，为每条新插入的行在同一事务内写入一条发件箱消息(返回nil消息则跳过)。
func (m *MySQL) InsertRecommendations(ctx context.Context, recs []*models.Recommendation, outboxFor func(*models.Recommendation) (*models.OutboxMessage, error)) ([]*models.Recommendation, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.InsertRecommendations",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_IGNORE"),
		attribute.String("db.sql.table", "recommendations"),
		attribute.Int("batch.size", len(recs)),
	)

	if len(recs) == 0 {
		span.SetStatus(codes.Ok, "no recommendations to insert")
		return nil, nil
	}

	inserted := make([]*models.Recommendation, 0, len(recs))
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			// 逐行插入以便识别被唯一索引跳过的行；事务保证整体原子性。
			// Omit关联，避免GORM顺带upsert候选人/岗位记录。
			result := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(rec)
			if result.Error != nil {
				return fmt.Errorf("插入推荐记录失败 (candidate=%s job=%s): %w",
					rec.CandidateID, rec.JobID, result.Error)
			}
			if result.RowsAffected == 0 {
				continue
			}
			inserted = append(inserted, rec)

			if outboxFor == nil {
				continue
			}
			msg, err := outboxFor(rec)
			if err != nil {
				return fmt.Errorf("构建发件箱消息失败 (recommendation=%s): %w", rec.RecommendationID, err)
			}
			if msg == nil {
				continue
			}
			if err := tx.Create(msg).Error; err != nil {
				return fmt.Errorf("写入发件箱消息失败 (recommendation=%s): %w", rec.RecommendationID, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.rows_affected", len(inserted)))
	span.SetStatus(codes.Ok, "")
	return inserted, nil
}

// ListRecommendations 按过滤条件分页查询活跃推荐，预加载候选人与岗位用于反规范化投影。
// 自由文本搜索、地点与技能过滤需要关联候选人/岗位表，因此这里用JOIN而不是Preload内过滤。
func (m *MySQL) ListRecommendations(ctx context.Context, filter types.RecommendationFilter, page types.Pagination) ([]models.Recommendation, int64, error) {
	query := m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Joins("JOIN candidates ON candidates.candidate_id = recommendations.candidate_id").
		Joins("JOIN jobs ON jobs.job_id = recommendations.job_id").
		Where("recommendations.is_active = ?", true)

	if filter.CandidateID != "" {
		query = query.Where("recommendations.candidate_id = ?", filter.CandidateID)
	}
	if filter.JobID != "" {
		query = query.Where("recommendations.job_id = ?", filter.JobID)
	}
	if filter.Direction != "" {
		query = query.Where("recommendations.direction = ?", string(filter.Direction))
	}
	if filter.MinScore != nil {
		query = query.Where("recommendations.overall_score >= ?", *filter.MinScore)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where(
			"candidates.name LIKE ? OR jobs.job_title LIKE ? OR jobs.company LIKE ?",
			like, like, like)
	}
	if filter.Location != "" {
		like := "%" + filter.Location + "%"
		query = query.Where("candidates.location LIKE ? OR jobs.location LIKE ?", like, like)
	}
	if filter.Skill != "" {
		// skills_json 是字符串数组，用 JSON_CONTAINS 做包含判断
		query = query.Where("JSON_CONTAINS(candidates.skills_json, JSON_QUOTE(?))", filter.Skill)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计推荐总数失败: %w", err)
	}

	var recs []models.Recommendation
	err := query.
		Select("recommendations.*").
		Preload("Candidate").
		Preload("Job").
		Order("recommendations.overall_score DESC, recommendations.created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询推荐列表失败: %w", err)
	}

	return recs, total, nil
}

// GetRecommendationByID 按主键获取单条推荐，未找到时返回 gorm.ErrRecordNotFound
func (m *MySQL) GetRecommendationByID(ctx context.Context, id string) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := m.db.WithContext(ctx).
		Preload("Candidate").
		Preload("Job").
		Where("recommendation_id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询推荐记录失败: %w", err)
	}
	return &rec, nil
}

// UpdateRecommendation 按主键更新推荐的互动字段。
// updates 的键为数据库列名；未找到记录时返回 gorm.ErrRecordNotFound。
func (m *MySQL) UpdateRecommendation(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Where("recommendation_id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新推荐记录失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// statsRow 统计查询的中间行
type statsRow struct {
	Total         int64
	AvgScore      float64
	HighQuality   int64
	DistinctCands int64
	DistinctJobs  int64
}

// GetRecommendationStats 对活跃推荐做一次汇总统计。
// 数值口径走SQL聚合；技能/地点的频次榜需要展开JSON子记录，在应用侧计算。
func (m *MySQL) GetRecommendationStats(ctx context.Context, highQualityFloor float64) (*types.MatchStats, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.GetRecommendationStats",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.sql.table", "recommendations"),
	)

	var row statsRow
	err := m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(AVG(overall_score), 0) AS avg_score, "+
			"COALESCE(SUM(CASE WHEN overall_score >= ? THEN 1 ELSE 0 END), 0) AS high_quality, "+
			"COUNT(DISTINCT candidate_id) AS distinct_cands, "+
			"COUNT(DISTINCT job_id) AS distinct_jobs",
			highQualityFloor).
		Where("is_active = ?", true).
		Scan(&row).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("汇总推荐统计失败: %w", err)
	}

	stats := &types.MatchStats{
		TotalActive:          row.Total,
		HighQuality:          row.HighQuality,
		AverageScore:         row.AvgScore,
		DistinctCandidates:   row.DistinctCands,
		DistinctJobs:         row.DistinctJobs,
		CategoryDistribution: make(map[types.ScoreCategory]int64),
	}

	type categoryRow struct {
		Label string
		Cnt   int64
	}
	var categories []categoryRow
	err = m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Select("score_category AS label, COUNT(*) AS cnt").
		Where("is_active = ?", true).
		Group("score_category").
		Find(&categories).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("按档位分组统计失败: %w", err)
	}
	for _, c := range categories {
		stats.CategoryDistribution[types.ScoreCategory(c.Label)] = c.Cnt
	}

	topSkills, topLocations, err := m.aggregateSubRecordFrequencies(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	stats.TopSkills = topSkills
	stats.TopLocations = topLocations

	span.SetStatus(codes.Ok, "")
	return stats, nil
}

// statsFrequencyLimit 频次榜长度与参与聚合的最大行数
const (
	statsTopN        = 10
	statsScanRowsCap = 10000
)

// aggregateSubRecordFrequencies 展开活跃推荐的技能/地点子记录，统计出现频次。
// 技能取命中的matched列表；技能数据缺失的行回落到候选人地点，与地点榜共用来源。
func (m *MySQL) aggregateSubRecordFrequencies(ctx context.Context) ([]types.FrequencyCount, []types.FrequencyCount, error) {
	type subRow struct {
		SkillsMatchJSON []byte
		LocMatchJSON    []byte
	}
	var rows []subRow
	err := m.db.WithContext(ctx).Model(&models.Recommendation{}).
		Select("skills_match_json", "loc_match_json").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(statsScanRowsCap).
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("读取推荐子记录失败: %w", err)
	}

	skillCounts := make(map[string]int64)
	locationCounts := make(map[string]int64)
	for _, row := range rows {
		var skills types.SkillsMatch
		hasSkills := false
		if len(row.SkillsMatchJSON) > 0 {
			if err := json.Unmarshal(row.SkillsMatchJSON, &skills); err == nil {
				for _, s := range skills.Matched {
					if s != "" {
						skillCounts[s]++
						hasSkills = true
					}
				}
			}
		}

		var loc types.LocationMatch
		if len(row.LocMatchJSON) > 0 {
			if err := json.Unmarshal(row.LocMatchJSON, &loc); err == nil {
				if loc.CandidateValue != "" {
					locationCounts[loc.CandidateValue]++
					if !hasSkills {
						// 技能数据缺失时用候选人地点兜底，保持榜单非空
						skillCounts[loc.CandidateValue]++
					}
				}
			}
		}
	}

	return topFrequencies(skillCounts, statsTopN), topFrequencies(locationCounts, statsTopN), nil
}

// CleanupInactiveBefore 硬删除在给定时间之前创建且已停用的推荐，返回删除行数。
// 活跃行无论多旧都不会被触碰。
func (m *MySQL) CleanupInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CleanupInactiveBefore",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "recommendations"),
		attribute.String("cleanup.cutoff", cutoff.Format(time.RFC3339)),
	)

	result := m.db.WithContext(ctx).
		Where("is_active = ? AND created_at < ?", false, cutoff).
		Delete(&models.Recommendation{})
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, result.Error.Error())
		return 0, fmt.Errorf("清理过期的非活跃推荐失败: %w", result.Error)
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", result.RowsAffected))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected, nil
}

// CountRecommendations 返回推荐表总行数，用于健康检查的连通性探测
func (m *MySQL) CountRecommendations(ctx context.Context) (int64, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&models.Recommendation{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计推荐表行数失败: %w", err)
	}
	return count, nil
}

// topFrequencies 把计数map转换为按次数降序的前N条频次记录
func topFrequencies(counts map[string]int64, n int) []types.FrequencyCount {
	out := make([]types.FrequencyCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, types.FrequencyCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
