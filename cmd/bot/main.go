package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/MatthewCline-git/higher-pleasures/internal/config"
	"github.com/MatthewCline-git/higher-pleasures/internal/consumer"
	"github.com/MatthewCline-git/higher-pleasures/internal/extract"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
	ledgerpg "github.com/MatthewCline-git/higher-pleasures/internal/ledger/postgres"
	"github.com/MatthewCline-git/higher-pleasures/internal/match"
	"github.com/MatthewCline-git/higher-pleasures/internal/tracking"
)

func main() {
	cfg := config.Load()

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store ledger.Store
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := ledgerpg.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("failed to prepare schema: %v", err)
		}
		store = ledgerpg.NewStore(pool)
	} else {
		log.Println("POSTGRES_URL not set, using in-memory store")
		store = ledger.NewInMemoryStore()
	}

	openAICfg := extract.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.ExtractorTimeout,
	}
	extractor := extract.NewOpenAIExtractor(openAICfg)

	var scorer match.Scorer
	switch cfg.MatchScorer {
	case "embedding":
		scorer = match.NewEmbeddingScorer(extract.NewOpenAIEmbedder(openAICfg))
	default:
		scorer = match.NewLexicalScorer()
	}

	matcher := match.NewMatcher(store, scorer, cfg.MatchThreshold)
	writer := ledger.NewWriter(store, cfg.StoreMaxRetries, cfg.StoreBaseDelay)
	tracker := tracking.NewTracker(store, writer, extractor, matcher, cfg.DefaultDurationMin)

	publisher := consumer.NewKafkaPublisher(cfg.KafkaBrokers, cfg.ReplyTopic, cfg.EntryTopic)
	defer publisher.Close()

	handler := consumer.NewTrackerHandler(tracker, publisher, nil)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		log.Printf("bot metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.ChatTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})

	proc := consumer.NewProcessor(reader, handler)

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("bot consumer started (topic=%s, group=%s)", cfg.ChatTopic, cfg.ConsumerGroupID)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("bot consumer stopped with error: %v", err)
		}
	}()

	<-stop
	log.Println("bot shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	wg.Wait()
}
