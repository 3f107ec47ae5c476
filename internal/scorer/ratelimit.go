package scorer

import (
	"context"
	"sync"
	"time"

	"match-engine-go/internal/types"
)

// TokenBucket 实现令牌桶算法的限流器，用于约束对外部评分模型的调用频率
type TokenBucket struct {
	rate           float64    // 每秒生成的令牌数
	capacity       float64    // 桶的容量
	tokens         float64    // 当前令牌数
	lastRefillTime time.Time  // 上次填充令牌的时间
	mutex          sync.Mutex // 互斥锁，保证并发安全
}

// NewTokenBucket 创建一个新的令牌桶限流器，qpm为每分钟允许的请求数
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	// 如果未指定容量，设置为QPM的一半
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0, // 转换为每秒速率
		capacity:       float64(capacity),
		tokens:         float64(capacity), // 初始填满
		lastRefillTime: time.Now(),
	}
}

// refill 根据经过的时间填充令牌
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	newTokens := elapsed * tb.rate
	if tb.tokens+newTokens > tb.capacity {
		tb.tokens = tb.capacity
	} else {
		tb.tokens += newTokens
	}
}

// Allow 判断是否允许通过一个请求，消耗一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到有令牌可用或上下文取消
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}

		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			// 继续尝试获取令牌
		}
	}
}

// RateLimitedScorer 在内层评分器外加客户端限流。
// 令牌耗尽时等待而非直接失败；等待期间上下文超时的错误会被
// 降级判定识别，从而走规则评分兜底。
type RateLimitedScorer struct {
	inner  Scorer
	bucket *TokenBucket
}

// NewRateLimitedScorer 创建限流评分器，qpm为每分钟允许的模型调用数
func NewRateLimitedScorer(inner Scorer, qpm int) *RateLimitedScorer {
	return &RateLimitedScorer{
		inner:  inner,
		bucket: NewTokenBucket(qpm, 0),
	}
}

// Name 返回内层评分器的标识
func (s *RateLimitedScorer) Name() string {
	return s.inner.Name()
}

// Score 先获取令牌再调用内层评分器
func (s *RateLimitedScorer) Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Score(ctx, candidate, job, language)
}

var _ Scorer = (*RateLimitedScorer)(nil)
