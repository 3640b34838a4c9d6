package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	appName         = "tableside"
	defaultDatabase = "tableside"
	defaultTimeout  = 10 * time.Second
)

// BaseRepo owns the MongoDB connection shared by the repositories.
type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

// Enabled reports whether a MongoDB URL is configured. Without one the
// service keeps its order history in memory.
func (r *BaseRepo) Enabled() bool {
	return SettingsFrom(r.config).URL != ""
}

// Settings is the db.mongo.* configuration.
type Settings struct {
	URL     string
	Name    string
	Timeout time.Duration
	MaxPool uint64
}

// SettingsFrom reads db.mongo.url, name, timeout and max_pool. Unparsable
// values keep their defaults.
func SettingsFrom(config *apt.Config) Settings {
	st := Settings{Name: defaultDatabase, Timeout: defaultTimeout}
	if config == nil {
		return st
	}
	st.URL, _ = config.GetString("db.mongo.url")
	st.Name = config.GetStringOrDef("db.mongo.name", defaultDatabase)
	if raw, ok := config.GetString("db.mongo.timeout"); ok && raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			st.Timeout = d
		}
	}
	if raw, ok := config.GetString("db.mongo.max_pool"); ok && raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			st.MaxPool = n
		}
	}
	return st
}

// ClientOptions builds the driver options. History writes use majority
// acknowledgement and retried once by the driver.
func (st Settings) ClientOptions() (*options.ClientOptions, error) {
	if st.URL == "" {
		return nil, errors.New("db.mongo.url is not configured")
	}
	timeout := st.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().ApplyURI(st.URL).
		SetAppName(appName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())
	if st.MaxPool > 0 {
		opts.SetMaxPoolSize(st.MaxPool)
	}
	return opts, nil
}

func (r *BaseRepo) Start(ctx context.Context) error {
	st := SettingsFrom(r.config)
	clientOptions, err := st.ClientOptions()
	if err != nil {
		return err
	}
	dbName := st.Name
	if dbName == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	r.logger.Info("order history connected to MongoDB", "database", dbName)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}
