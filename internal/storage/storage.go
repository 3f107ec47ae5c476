package storage

import (
	"context"
	"fmt"
	"log"

	"match-engine-go/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库，引擎的唯一事实来源
	MySQL *MySQL

	// 键值存储，统计缓存与分布式锁
	Redis *Redis

	// 消息队列，推荐事件投递
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器。
// MySQL是硬依赖，初始化失败直接返回错误；Redis与RabbitMQ失败时降级运行并告警。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error

	if cfg.MySQL.Host == "" {
		return nil, fmt.Errorf("MySQL未配置，推荐引擎无法启动")
	}
	log.Printf("初始化MySQL...")
	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}

	// 初始化Redis (如果配置了)
	if cfg.Redis.Address != "" {
		log.Printf("初始化Redis at %s...", cfg.Redis.Address)
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("警告: 初始化Redis失败，统计缓存与分布式锁不可用: %v", err)
			storage.Redis = nil
		}
	} else {
		log.Printf("Redis未配置, 跳过初始化.")
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		log.Printf("初始化RabbitMQ...")
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("警告: 初始化RabbitMQ失败，推荐事件不会投递: %v", err)
			storage.RabbitMQ = nil
		} else if cfg.RabbitMQ.MatchEventsExchange != "" {
			if err := storage.RabbitMQ.EnsureExchange(cfg.RabbitMQ.MatchEventsExchange, "topic", true); err != nil {
				log.Printf("警告: 声明推荐事件exchange失败: %v", err)
			}
		}
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("关闭MySQL连接失败: %v", err)
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
}
