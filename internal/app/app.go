package app

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/config"
	"github.com/snappy-loop/imagine/internal/database"
	"github.com/snappy-loop/imagine/internal/handlers"
	"github.com/snappy-loop/imagine/internal/kafka"
	"github.com/snappy-loop/imagine/internal/keys"
	"github.com/snappy-loop/imagine/internal/llm"
	"github.com/snappy-loop/imagine/internal/processor"
	"github.com/snappy-loop/imagine/internal/storage"
	"github.com/snappy-loop/imagine/migrations"
)

// App holds the wired pipeline shared by the HTTP and serverless entry points
type App struct {
	Processor *processor.Processor
	Handler   *handlers.Handler
	Runs      *database.RunRepository // nil when DATABASE_URL is unset

	db       *database.DB
	producer *kafka.Producer
}

// New builds every component from cfg. The run ledger and run events are enabled only
// when DATABASE_URL and KAFKA_BROKERS are set.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	httpClient := resty.New().SetTimeout(cfg.UpstreamTimeout)

	llmClient, err := llm.NewClient(ctx, cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	storageClient, err := storage.NewClient(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
		cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}
	persister := storage.NewPersister(storageClient.AsUploader(), httpClient)

	keyGen, err := keys.NewGenerator(cfg.KeyFormat, keys.NewClock())
	if err != nil {
		return nil, err
	}

	a := &App{
		Processor: processor.NewProcessor(llmClient, llmClient, persister, keyGen, cfg.UpstreamTimeout),
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := migrations.Run(ctx, db.DB); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.db = db
		a.Runs = database.NewRunRepository(db)
		a.Processor.WithRecorder(a.Runs)
	} else {
		log.Info().Msg("DATABASE_URL not set, run ledger disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicRuns)
		a.Processor.WithPublisher(a.producer)
	} else {
		log.Info().Msg("KAFKA_BROKERS not set, run events disabled")
	}

	// A nil *RunRepository must not reach the handler as a non-nil interface.
	if a.Runs != nil {
		a.Handler = handlers.NewHandler(a.Processor, a.Runs)
	} else {
		a.Handler = handlers.NewHandler(a.Processor, nil)
	}

	return a, nil
}

// LedgerEnabled reports whether runs are being recorded
func (a *App) LedgerEnabled() bool {
	return a.Runs != nil
}

// Close releases the database and Kafka connections
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
