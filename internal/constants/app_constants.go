package constants

import "time"

const (
	// ScoreExcellentFloor / ScoreGoodFloor / ScoreAverageFloor 档位下界，闭区间
	ScoreExcellentFloor = 90.0
	ScoreGoodFloor      = 80.0
	ScoreAverageFloor   = 70.0

	// HighQualityThreshold 统计口径中"高质量推荐"的总分下界
	HighQualityThreshold = 80.0

	// TargetedMinScore 单候选人/单岗位模式的准入阈值
	TargetedMinScore = 70.0
	// SweepMinScore 全量扫描模式的准入阈值，探索性场景放宽
	SweepMinScore = 60.0

	// OverFetchFactor 按候选人/按岗位模式的超额抓取倍率，先取 2x 再按分数截断
	OverFetchFactor = 2
	// SweepPoolSize 全量扫描时单侧参与配对的实体上限
	SweepPoolSize = 50

	// FallbackConfidence 降级评分输出的固定置信度
	FallbackConfidence = 0.6
	// NeutralSalaryScore 候选人未填写期望薪资时的中性薪资分
	NeutralSalaryScore = 70.0

	// DefaultScoreWorkers 批量评分的默认并发度
	DefaultScoreWorkers = 4

	// DefaultStatsCacheTTL 统计汇总的默认缓存时长
	DefaultStatsCacheTTL = 5 * time.Minute
	// SweepLockTTL 全量扫描分布式锁的过期时间
	SweepLockTTL = 5 * time.Minute

	// DefaultCleanupDays 清理任务默认的"足够旧"天数
	DefaultCleanupDays = 30
)

// ExperienceBaselines 岗位经验级别到期望年限基线的映射
var ExperienceBaselines = map[string]int{
	"entry":     0,
	"junior":    1,
	"middle":    3,
	"senior":    5,
	"lead":      7,
	"executive": 10,
}

// SupportedLanguages 提示词支持的自然语言列表，静态配置
var SupportedLanguages = []string{"zh", "en", "ru", "kk"}
