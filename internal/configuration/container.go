package configuration

import (
	"Lumen/internal/db"
	"Lumen/internal/handler"
	"Lumen/internal/hub"
	"Lumen/internal/model"
	"Lumen/internal/realtime"
	"Lumen/internal/repo"
	"Lumen/internal/service"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	ConversationHandler handler.ConversationHandler
	ProfileHandler      handler.ProfileHandler
	MonitorHandler      handler.MonitorHandler
	Conversations       service.ConversationService
	Profiles            service.ProfileService
	Hub                 *hub.Hub
	Config              Config
	Logger              *zap.Logger

	// private - for cleanup
	broker      realtime.Broker
	mongoClient *mongo.Database
	sqlite      *sql.DB
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}

func BuildContainer(ctx context.Context, config_path string) (*Container, error) {
	config, err := LoadConfig(config_path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config: *config,
		Logger: logger,
	}

	var (
		messages      repo.MessageRepository
		conversations repo.ConversationRepository
		profiles      repo.ProfileRepository
	)

	switch config.Store.Driver {
	case StoreMongo:
		con, err := db.OpenConnection(ctx, config.Store.Mongo.Uri, config.Store.Mongo.Database)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to connect to mongo: %w", err), c.Close())
		}
		c.mongoClient = con

		messageStore := db.NewRepository[model.Message](con, config.Store.Mongo.MessagesCollection)
		profileStore := db.NewRepository[model.Profile](con, config.Store.Mongo.ProfilesCollection)

		if err := ensureMessageIndexes(ctx, messageStore); err != nil {
			return nil, errors.Join(err, c.Close())
		}
		if err := repo.EnsureProfileIndexes(ctx, profileStore); err != nil {
			return nil, errors.Join(err, c.Close())
		}

		messages = repo.NewMessageRepository(messageStore, logger)
		conversations = repo.NewConversationRepository(messageStore, config.Store.Mongo.ProfilesCollection, logger)
		profiles = repo.NewProfileRepository(profileStore, logger)

	case StoreSQLite:
		con, err := db.OpenSQLite(ctx, config.Store.SQLite.Path)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open sqlite: %w", err), c.Close())
		}
		c.sqlite = con

		sqliteRepo := repo.NewSQLiteRepository(con, logger)
		messages, conversations, profiles = sqliteRepo, sqliteRepo, sqliteRepo
	}

	switch config.Realtime.Driver {
	case RealtimeNats:
		broker, err := realtime.NewNatsBroker(config.Realtime.Nats.Url, config.Realtime.Nats.SubjectPrefix, logger)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to connect to nats: %w", err), c.Close())
		}
		c.broker = broker
	default:
		c.broker = realtime.NewLocalBroker(config.Realtime.QueueSize, logger)
	}

	store := repo.NewStore(messages, conversations, c.broker, logger)
	c.Conversations = service.NewConversationService(store, logger)
	c.Profiles = service.NewProfileService(profiles, logger)

	c.Hub = hub.NewHub(hub.Options{
		Conversations:  c.Conversations,
		Profiles:       c.Profiles,
		Broker:         c.broker,
		JwtSecret:      []byte(config.Auth.JwtSecret),
		AllowedOrigins: config.Server.AllowedOrigins,
		Logger:         logger,
	})

	c.ConversationHandler = handler.NewConversationHandler(c.Conversations, logger)
	c.ProfileHandler = handler.NewProfileHandler(c.Profiles, logger)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))

	logger.Info("container built",
		zap.String("store", config.Store.Driver),
		zap.String("realtime", config.Realtime.Driver),
	)
	return c, nil
}

func ensureMessageIndexes(ctx context.Context, messages *db.Repository[model.Message]) error {
	indexes := []bson.D{
		{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}},
		{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	for _, keys := range indexes {
		if err := messages.EnsureIndex(ctx, keys, false); err != nil {
			return fmt.Errorf("failed to create message index: %w", err)
		}
	}
	return nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	var errs []error

	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.broker != nil {
		if err := c.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker: %w", err))
		}
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MongoDB connection: %w", err))
		}
	}

	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite: %w", err))
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return errors.Join(errs...)
}
