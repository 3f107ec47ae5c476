// Package scorer 实现候选人与岗位的兼容性评分。
// 主路径委托外部大模型服务，限流/配额/超时场景降级到本地规则评分，两者共用同一契约。
package scorer

import (
	"context"
	"errors"
	"strings"

	"match-engine-go/internal/types"
)

// Scorer 兼容性评分器契约。
// 四个子分与总分均在 [0,100]，置信度在 [0,1]。language 为提示词语言代码(zh/en/ru/kk)。
type Scorer interface {
	Score(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, language string) (*types.MatchScore, error)

	// Name 返回评分器标识，写入评分元数据
	Name() string
}

// ErrRateLimited 外部评分服务返回限流或配额耗尽
var ErrRateLimited = errors.New("评分服务限流或配额耗尽")

// ErrMalformedResponse 外部评分服务返回了无法解析的内容，属于硬失败，不触发降级
var ErrMalformedResponse = errors.New("评分服务响应格式非法")

// IsFallbackTrigger 判断错误是否应触发降级评分。
// 仅超时、限流与配额耗尽降级；其余错误(鉴权失败、响应非法等)原样上抛，避免把真实缺陷掩盖成降级模式。
func IsFallbackTrigger(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "ratelimit", "quota", "throttl", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
