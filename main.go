package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfsnap/shelfsnap-go/pkg/config"
	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/pairing"
	"github.com/shelfsnap/shelfsnap-go/pkg/tiebreak"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger := utils.GetLogger()

	store := buildStore(cfg)
	defer store.Close()

	resolver := buildResolver(cfg)

	engine := pairing.NewEngine(pairing.EngineOptions{
		Scorer: pairing.ScorerOptions{
			TopK:            cfg.Pairing.TopK,
			CategoryWeight:  cfg.Pairing.CategoryWeight,
			ProximityWindow: cfg.Pairing.ProximityWindow,
		},
		ScoreFloor:      cfg.Pairing.ScoreFloor,
		MarginGap:       cfg.Pairing.MarginGap,
		OrphanThreshold: cfg.Pairing.OrphanThreshold,
		TieBreakTimeout: time.Duration(cfg.TieBreak.Timeout) * time.Second,
		ResultTTL:       time.Duration(cfg.Redis.ResultTTL) * time.Second,
	}, resolver, store)

	server := NewServer(cfg, engine, store)

	if cfg.Repair.Enabled {
		if err := server.repair.Start(cfg.Repair.Schedule); err != nil {
			logger.Error("Failed to start repair scheduler", err, utils.Component("main"))
		}
	}

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Error("Server stopped", err, utils.Component("main"))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received", utils.Component("main"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown did not complete cleanly", err, utils.Component("main"))
		os.Exit(1)
	}
}

// buildStore selects Redis when a URL is configured, the in-memory store
// otherwise
func buildStore(cfg *config.Config) kvstore.Store {
	logger := utils.GetLogger()

	if cfg.Redis.URL == "" {
		logger.Info("No Redis URL configured, using in-memory store", utils.Component("main"))
		return kvstore.NewMemoryStore()
	}

	store, err := kvstore.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Error("Redis unavailable, falling back to in-memory store", err, utils.Component("main"))
		return kvstore.NewMemoryStore()
	}
	return store
}

// buildResolver creates the tie-break resolver when an API key is
// configured. Without one, ambiguous fronts become singletons.
func buildResolver(cfg *config.Config) tiebreak.Resolver {
	logger := utils.GetLogger()

	if cfg.TieBreak.APIKey == "" {
		logger.Warn("No tie-break API key configured, ambiguous fronts will not be escalated",
			utils.Component("main"))
		return nil
	}

	resolver, err := tiebreak.NewLLMResolver(tiebreak.LLMResolverConfig{
		BaseURL: cfg.TieBreak.BaseURL,
		APIKey:  cfg.TieBreak.APIKey,
		Model:   cfg.TieBreak.Model,
		Timeout: time.Duration(cfg.TieBreak.Timeout) * time.Second,
	})
	if err != nil {
		logger.Error("Failed to create tie-break resolver", err, utils.Component("main"))
		return nil
	}
	return resolver
}
