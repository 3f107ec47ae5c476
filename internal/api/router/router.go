// Package router 注册 HTTP 路由，负责传输层的参数解析与状态码映射。
package router

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"match-engine-go/internal/api/handler"
	"match-engine-go/internal/config"
	"match-engine-go/internal/engine"
	"match-engine-go/internal/types"
)

// RegisterRoutes 注册 API 路由。
// 健康检查挂在根路径且不鉴权；业务接口在 /api/v1 下，
// 配置了 api_keys 时启用 X-API-Key 鉴权。
func RegisterRoutes(h *server.Hertz, cfg *config.Config, recHandler *handler.RecommendationHandler) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		if err := recHandler.HandleHealth(c); err != nil {
			ctx.JSON(consts.StatusServiceUnavailable, utils.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	h.GET("/health/scorer", func(c context.Context, ctx *app.RequestContext) {
		status := recHandler.HandleScorerHealth(c)
		code := consts.StatusOK
		if status == types.HealthUnhealthy {
			code = consts.StatusServiceUnavailable
		}
		ctx.JSON(code, utils.H{"status": string(status)})
	})

	api := h.Group("/api/v1")
	if len(cfg.Server.APIKeys) > 0 {
		api.Use(apiKeyMiddleware(cfg.Server.APIKeys))
	}

	// 生成单个配对的推荐
	api.POST("/recommendations", func(c context.Context, ctx *app.RequestContext) {
		var req handler.GeneratePairRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
			return
		}
		resp, err := recHandler.HandleGeneratePair(c, req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 为候选人批量生成岗位推荐
	api.POST("/candidates/:candidate_id/recommendations", func(c context.Context, ctx *app.RequestContext) {
		var req handler.GenerateBatchRequest
		if len(ctx.Request.Body()) > 0 {
			if err := ctx.BindAndValidate(&req); err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
				return
			}
		}
		resp, err := recHandler.HandleGenerateForCandidate(c, ctx.Param("candidate_id"), req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 为岗位批量生成候选人推荐
	api.POST("/jobs/:job_id/recommendations", func(c context.Context, ctx *app.RequestContext) {
		var req handler.GenerateBatchRequest
		if len(ctx.Request.Body()) > 0 {
			if err := ctx.BindAndValidate(&req); err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
				return
			}
		}
		resp, err := recHandler.HandleGenerateForJob(c, ctx.Param("job_id"), req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 全量扫描生成
	api.POST("/recommendations/sweep", func(c context.Context, ctx *app.RequestContext) {
		var req handler.GenerateBatchRequest
		if len(ctx.Request.Body()) > 0 {
			if err := ctx.BindAndValidate(&req); err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
				return
			}
		}
		resp, err := recHandler.HandleGenerateSweep(c, req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 分页查询推荐
	api.GET("/recommendations", func(c context.Context, ctx *app.RequestContext) {
		filter := types.RecommendationFilter{
			Direction:   types.MatchDirection(ctx.Query("direction")),
			CandidateID: ctx.Query("candidate_id"),
			JobID:       ctx.Query("job_id"),
			Search:      ctx.Query("search"),
			Location:    ctx.Query("location"),
			Skill:       ctx.Query("skill"),
		}
		if raw := ctx.Query("min_score"); raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "min_score 必须是数字"})
				return
			}
			filter.MinScore = &score
		}

		page := types.Pagination{
			Offset: queryInt(ctx, "offset", 0),
			Limit:  queryInt(ctx, "limit", 0),
		}

		resp, err := recHandler.HandleList(c, filter, page)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 汇总统计
	api.GET("/recommendations/stats", func(c context.Context, ctx *app.RequestContext) {
		stats, err := recHandler.HandleStats(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, stats)
	})

	// 按ID获取推荐
	api.GET("/recommendations/:id", func(c context.Context, ctx *app.RequestContext) {
		view, err := recHandler.HandleGetByID(c, ctx.Param("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, view)
	})

	// 更新互动字段
	api.PATCH("/recommendations/:id", func(c context.Context, ctx *app.RequestContext) {
		var update types.RecommendationUpdate
		if err := ctx.BindAndValidate(&update); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
			return
		}
		view, err := recHandler.HandleUpdate(c, ctx.Param("id"), update)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, view)
	})

	// 清理过期的非活跃推荐
	api.POST("/maintenance/cleanup", func(c context.Context, ctx *app.RequestContext) {
		var req handler.CleanupRequest
		if len(ctx.Request.Body()) > 0 {
			if err := ctx.BindAndValidate(&req); err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
				return
			}
		}
		resp, err := recHandler.HandleCleanup(c, req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 提示词支持的语言
	api.GET("/languages", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"languages": recHandler.HandleSupportedLanguages()})
	})
}

// queryInt 解析整型查询参数，缺失或非法时返回默认值
func queryInt(ctx *app.RequestContext, name string, def int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// apiKeyMiddleware 基于静态令牌表的 X-API-Key 鉴权
func apiKeyMiddleware(apiKeys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, key := range apiKeys {
		allowed[key] = struct{}{}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "无效的API密钥"})
			ctx.Abort()
		}),
	)
}

// writeError 把业务错误映射为HTTP状态码
func writeError(ctx *app.RequestContext, err error) {
	switch {
	case handler.IsNotFound(err):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "资源不存在"})
	case errors.Is(err, engine.ErrSweepInProgress):
		ctx.JSON(consts.StatusConflict, utils.H{"error": err.Error()})
	default:
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}
