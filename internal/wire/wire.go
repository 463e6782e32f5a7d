package wire

import (
	"Parley/internal/api"
	"Parley/internal/api/config"
	"Parley/internal/api/handler"
	"Parley/internal/api/middleware"
	"Parley/internal/job"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/cron"
	"Parley/internal/pkg/database"
	"Parley/internal/pkg/es"
	"Parley/internal/pkg/kafka"
	"Parley/internal/pkg/mongo"
	"Parley/internal/pkg/preview"
	"Parley/internal/pkg/redis"
	"Parley/internal/pkg/rowstore"
	"Parley/internal/pkg/security"
	"Parley/internal/repository"
	"Parley/internal/service"
	"context"
	"fmt"
	log "log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// Infra 外部连接，ES 与 Redis 为 nil 时对应功能关闭
type Infra struct {
	Store rowstore.Store
	ES    *elasticsearch.TypedClient
	Redis *goredis.Client
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	Store        rowstore.Store
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
}

// OpenStore 按 store.driver 打开行存储
func OpenStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client) (rowstore.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Warn("Using in-memory row store, data will not survive restarts")
		return rowstore.NewMemoryStore(), nil
	case "mongo":
		db, err := mongo.InitMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		store := mongo.NewStore(db)
		if err = store.EnsureIndexes(ctx, consts.AllTables...); err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("store driver redis requires redis.addr")
		}
		return redis.NewStore(rdb, cfg.Redis.KeyPrefix), nil
	case "mysql":
		dbCfg := cfg.DB
		db, err := database.NewGormDB(&dbCfg)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return database.NewStore(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func BuildApplication(ctx context.Context, cfg *config.Config, infra Infra) (*ApplicationContainer, error) {
	store := infra.Store

	messageRepo := repository.NewMessageRepo(store)
	inviteRepo := repository.NewInviteRepo(store)
	configRepo := repository.NewServerConfigRepo(store)
	roleRepo := repository.NewRoleRepo(store)
	banRepo := repository.NewBanRepo(store)
	reportRepo := repository.NewReportRepo(store)

	var searchRepo es.MessageRepo
	if infra.ES != nil {
		searchRepo = es.NewMessageRepo(infra.ES, cfg.Elastic.Indices.MessageIndex)
	}

	publisher := service.NewNoopPublisher()
	var locker job.Locker
	if infra.Redis != nil {
		publisher = redis.NewPublisher(infra.Redis, cfg.Redis.KeyPrefix)
		locker = redis.NewLocker(infra.Redis, cfg.Redis.KeyPrefix)
	}

	issuer := security.NewTokenIssuer(cfg.JWT)

	serverService := service.NewServerService(configRepo, roleRepo, banRepo, issuer, publisher, cfg.ServerDefaults)
	messageService := service.NewMessageService(messageRepo, searchRepo, publisher, cfg.ServerDefaults)
	inviteService := service.NewInviteService(inviteRepo, configRepo, roleRepo, banRepo, issuer, publisher)
	moderationService := service.NewModerationService(reportRepo, messageRepo, searchRepo, publisher, cfg.Moderation.PageSize)

	if _, err := serverService.EnsureConfig(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure server config: %w", err)
	}

	handlers := &api.HandlersGroup{
		Auth:              middleware.AuthMiddleware(issuer, serverService),
		MessageHandler:    handler.NewMessageHandler(messageService),
		InviteHandler:     handler.NewInviteHandler(inviteService),
		ServerHandler:     handler.NewServerHandler(serverService),
		ModerationHandler: handler.NewModerationHandler(moderationService),
		PreviewHandler:    handler.NewPreviewHandler(preview.NewFetcher(cfg.Preview)),
	}

	router := api.SetupRouter(handlers, cfg.Server.AllowOrigins)

	cronMgr := cron.NewCronManager(cfg.Moderation.DigestCron, job.NewModerationDigestJob(moderationService, locker))

	var kafkaMgr *kafka.ConsumerManager
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		kafkaMgr, err = kafka.NewConsumerManager(cfg, moderationService)
		if err != nil {
			return nil, err
		}
	}

	return &ApplicationContainer{
		Router:       router,
		Store:        store,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
	}, nil
}
