package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// MatchModulePrefix 匹配引擎模块
	MatchModulePrefix = "match"

	// EntityStats 统计汇总实体
	EntityStats = "stats"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyMatchStats 推荐统计汇总缓存 (STRING, JSON序列化)
	// 格式: app:match:stats:rollup
	KeyMatchStats = AppPrefix + ":" + MatchModulePrefix + ":" + EntityStats + ":rollup"

	// KeySweepLock 全量扫描分布式锁 (STRING)
	// 格式: app:match:lock:sweep
	KeySweepLock = AppPrefix + ":" + MatchModulePrefix + ":" + EntityLock + ":sweep"
)
