package wire

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"gorm.io/gorm"

	"tenantlink/internal/chat/handler"
	"tenantlink/internal/chat/repository"
	"tenantlink/internal/chat/service"
	"tenantlink/internal/config"
	"tenantlink/internal/dbmongo"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
	"tenantlink/internal/maintenance"
	"tenantlink/internal/metrics"
	"tenantlink/internal/notif"
	"tenantlink/internal/routing"
	"tenantlink/internal/user"
)

// Application is everything the serve command needs to mount routes.
type Application struct {
	Config        *config.Config
	Log           *logger.Logger
	Metrics       *metrics.Metrics
	DB            *gorm.DB
	Users         *user.Handler
	Chat          *handler.ChatHandler
	Maintenance   *maintenance.Handler
	Notifications *notif.Handler
}

var storeSet = wire.NewSet(
	ProvideDatabase,
	dbsql.NewNotificationRepository,
	dbsql.NewPropertyRepository,
	user.NewUserRepository,
	user.NewPushTokenRepository,
	repository.NewChatRepository,
	maintenance.NewRepository,
)

var notifSet = wire.NewSet(
	ProvideFCMClient,
	notif.NewPushTransport,
	ProvideTransports,
	ProvidePublisher,
	ProvideMongo,
	ProvideDeliveryLog,
	ProvideRecorder,
	ProvideHistory,
	notif.NewTokenRegistry,
	notif.NewDispatcher,
	notif.NewHandler,
)

var appSet = wire.NewSet(
	ProvideLogger,
	metrics.New,
	storeSet,
	routing.NewResolver,
	wire.Bind(new(service.Router), new(*routing.Resolver)),
	wire.Bind(new(maintenance.Router), new(*routing.Resolver)),
	notifSet,
	wire.Bind(new(service.Notifier), new(*notif.Dispatcher)),
	wire.Bind(new(maintenance.Notifier), new(*notif.Dispatcher)),
	service.NewChatService,
	handler.NewChatHandler,
	maintenance.NewWorkflow,
	maintenance.NewHandler,
	user.NewHandler,
	wire.Struct(new(Application), "*"),
)

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(cfg.Logging)
}

func ProvideDatabase(cfg *config.Config, log *logger.Logger) (*gorm.DB, func(), error) {
	db, err := dbsql.Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if cfg.Server.AutoMigrate {
		if err := dbsql.AutoMigrate(db); err != nil {
			cleanup()
			return nil, nil, err
		}
		log.Info("database schema migrated")
	}
	return db, cleanup, nil
}

// ProvideFCMClient yields a nil interface, not a typed nil, when firebase is off.
func ProvideFCMClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (notif.FCMClient, error) {
	client, err := notif.NewFCMClient(ctx, cfg.Firebase, log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}
	return client, nil
}

func ProvideTransports(cfg *config.Config, push notif.PushTransport, log *logger.Logger) notif.Transports {
	t := notif.Transports{Push: push}
	if cfg.Email.Enabled && cfg.Email.SMTPHost != "" {
		t.Email = notif.NewSMTPTransport(cfg.Email)
	} else {
		log.Info("email channel disabled")
	}
	if cfg.SMS.Enabled {
		t.SMS = notif.NewLogSMSTransport(cfg.SMS, log)
	}
	return t
}

func ProvidePublisher(cfg *config.Config, log *logger.Logger) (notif.Publisher, func(), error) {
	pub, err := notif.NewRedisPublisher(cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	if pub == nil {
		return nil, func() {}, nil
	}
	return pub, func() { _ = pub.Close() }, nil
}

func ProvideMongo(cfg *config.Config, log *logger.Logger) (*dbmongo.MongoClient, func(), error) {
	if !cfg.MongoDB.Enabled {
		log.Info("delivery log disabled")
		return nil, func() {}, nil
	}
	mc, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	return mc, func() { _ = mc.Close(context.Background()) }, nil
}

func ProvideDeliveryLog(ctx context.Context, cfg *config.Config, mc *dbmongo.MongoClient) (*dbmongo.DeliveryLog, error) {
	if mc == nil {
		return nil, nil
	}
	dl := dbmongo.NewDeliveryLog(mc.Database, cfg.MongoDB.Collection)
	if err := dl.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("delivery log: %w", err)
	}
	return dl, nil
}

func ProvideRecorder(dl *dbmongo.DeliveryLog) notif.DeliveryRecorder {
	if dl == nil {
		return nil
	}
	return dl
}

func ProvideHistory(dl *dbmongo.DeliveryLog) notif.DeliveryHistory {
	if dl == nil {
		return nil
	}
	return dl
}
