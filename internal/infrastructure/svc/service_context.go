package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fundwatch/internal/application/port"
	"fundwatch/internal/infrastructure/config"
	"fundwatch/internal/infrastructure/exchange/binance"
	"fundwatch/internal/infrastructure/storage/composite"
	filestore "fundwatch/internal/infrastructure/storage/file"
	pgrepo "fundwatch/internal/infrastructure/storage/postgres"
	redisrepo "fundwatch/internal/infrastructure/storage/redis"
	sqliterepo "fundwatch/internal/infrastructure/storage/sqlite"
	"fundwatch/internal/interfaces/console"
)

// ServiceContext 持有全部基础设施依赖
// The single place where config turns into live clients, stores and sinks.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	Provider    port.MarketData
	Feed        port.FundingFeed // nil when ws disabled
	ReportStore port.ReportStore
	ReportSink  port.ReportSink // nil when no history backend enabled
	Sink        port.Sink

	redisClient *redisclient.Client
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	sc.Provider = binance.NewClient(cfg.Binance.SpotURL, cfg.Binance.FuturesURL)
	if cfg.Binance.WsEnabled {
		sc.Feed = binance.NewMarkPriceFeed(cfg.Binance.WsURL)
	}

	store, err := filestore.New(cfg.Report.Path)
	if err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	sc.ReportStore = store

	if err := sc.initSinks(); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	return sc, nil
}

// initSinks 初始化可选的历史后端 (SQLite / Redis / Postgres)
func (sc *ServiceContext) initSinks() error {
	var sinks []port.ReportSink

	if sc.Config.SQLite.Enabled {
		repo, err := sqliterepo.New(sc.Config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite repo creation failed: %w", err)
		}
		sinks = append(sinks, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.SQLite.Path).Msg("✓ SQLite initialized")
	}

	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(&sinks); err != nil {
			return err
		}
	}

	if sc.Config.Postgres.Enabled {
		repo, err := pgrepo.New(sc.Config.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres repo creation failed: %w", err)
		}
		sinks = append(sinks, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("✓ Postgres initialized")
	}

	if len(sinks) > 0 {
		sc.ReportSink = composite.New(sinks...)
	}
	return nil
}

func (sc *ServiceContext) initRedis(sinks *[]port.ReportSink) error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	*sinks = append(*sinks, redisrepo.New(rdb, sc.Config.Redis.Prefix, ttl, sc.Config.Redis.ReportChannel))

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().Str("addr", sc.Config.Redis.Addr).Int("db", sc.Config.Redis.DB).Msg("✓ Redis initialized")
	return nil
}

// Close 按相反顺序释放所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
