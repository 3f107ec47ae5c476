package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"match-engine-go/internal/agent"
	"match-engine-go/internal/api/handler"
	"match-engine-go/internal/api/router"
	"match-engine-go/internal/config"
	"match-engine-go/internal/engine"
	"match-engine-go/internal/logger"
	"match-engine-go/internal/outbox"
	"match-engine-go/internal/scorer"
	"match-engine-go/internal/storage"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(logger.Logger))
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	matchScorer, prober := buildScorer(cfg)

	engineOpts := []engine.Option{}
	if storageManager.Redis != nil {
		engineOpts = append(engineOpts, engine.WithStatsCache(storageManager.Redis))
	}
	if prober != nil {
		engineOpts = append(engineOpts, engine.WithHealthProber(prober))
	}

	matchEngine, err := engine.New(
		storageManager.MySQL,
		storageManager.MySQL,
		storageManager.MySQL,
		matchScorer,
		cfg,
		engineOpts...,
	)
	if err != nil {
		glog.Fatalf("初始化推荐引擎失败: %v", err)
	}
	glog.Info("推荐引擎初始化成功")

	// 发件箱中继，把事务内落库的推荐事件投递到RabbitMQ
	var messageRelay *outbox.MessageRelay
	if storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	} else {
		glog.Warn("RabbitMQ未配置，推荐事件不会投递")
	}

	recHandler := handler.NewRecommendationHandler(cfg, matchEngine)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, cfg, recHandler)
	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildScorer 组装评分链。
// 配置了阿里云密钥时使用LLM评分器并以规则评分器兜底，否则纯规则评分。
// 返回的探针仅在存在外部模型时非空。
func buildScorer(cfg *config.Config) (scorer.Scorer, engine.HealthProber) {
	ruleScorer := scorer.NewRuleScorer()

	if cfg.Aliyun.APIKey == "" {
		glog.Warn("未配置阿里云API密钥，使用规则评分器")
		return ruleScorer, nil
	}

	chatModel, err := agent.NewAliyunQwenChatModel(
		cfg.Aliyun.APIKey,
		cfg.Aliyun.Model,
		cfg.Aliyun.APIURL,
		agent.WithTemperature(cfg.Scorer.Temperature),
		agent.WithMaxTokens(cfg.Scorer.MaxTokens),
	)
	if err != nil {
		glog.Warnf("初始化阿里云模型失败，回落到规则评分器: %v", err)
		return ruleScorer, nil
	}

	modelName := cfg.Scorer.ModelName
	if modelName == "" {
		modelName = cfg.Aliyun.Model
	}
	llmScorer := scorer.NewLLMScorer(chatModel, modelName,
		scorer.WithScoreTimeout(config.GetDuration(cfg.Scorer.ScoreTimeout, 30*time.Second)),
	)

	var primary scorer.Scorer = llmScorer
	if cfg.Scorer.ScoreQPM > 0 {
		primary = scorer.NewRateLimitedScorer(llmScorer, cfg.Scorer.ScoreQPM)
		glog.Infof("启用评分限流，QPM: %d", cfg.Scorer.ScoreQPM)
	}

	glog.Infof("LLM评分器初始化成功，模型: %s", modelName)
	return scorer.NewFailoverScorer(primary, ruleScorer), llmScorer
}
