package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retailpulse/churnrisk/pkg/artifacts"
	"github.com/retailpulse/churnrisk/pkg/blobstore"
	"github.com/retailpulse/churnrisk/pkg/churn"
	"github.com/retailpulse/churnrisk/pkg/config"
	"github.com/retailpulse/churnrisk/pkg/dataset"
	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/registry"
	"github.com/retailpulse/churnrisk/pkg/scheduler"
	"github.com/retailpulse/churnrisk/pkg/training"
	"github.com/retailpulse/churnrisk/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	retrain := flag.Bool("retrain", false, "force a retrain and exit")
	customerID := flag.String("customer", "", "print a risk report for one customer and exit")
	search := flag.String("search", "", "search customer ids by substring and exit")
	runs := flag.Int("runs", 0, "print the most recent N training runs and exit")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := utils.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, err := blobstore.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to create blob store", err)
		os.Exit(1)
	}

	reg, err := registry.NewRegistry(cfg.RegistryPath)
	if err != nil {
		logger.Error("failed to open training-run registry", err)
		os.Exit(1)
	}
	defer reg.Close()

	loader := func(ctx context.Context) ([]models.OrderItem, error) {
		return dataset.LoadOrders(cfg.OrdersPath)
	}

	store := artifacts.NewStore(
		blobs,
		artifacts.Keys{Model: cfg.ModelKey, Explainer: cfg.ExplainerKey, Features: cfg.FeaturesKey},
		loader,
		reg,
		training.DefaultConfig(),
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
	)
	service := churn.NewService(store)

	switch {
	case *retrain:
		snap, err := store.Retrain(ctx)
		if err != nil {
			logger.Error("retrain failed", err)
			os.Exit(1)
		}
		printJSON(snap.Metrics)

	case *customerID != "":
		report, err := service.GetRiskReport(ctx, *customerID)
		if err != nil {
			logger.Error("risk report failed", err)
			os.Exit(1)
		}
		printJSON(report)

	case *search != "":
		matches, err := service.SearchCustomers(ctx, *search)
		if err != nil {
			logger.Error("search failed", err)
			os.Exit(1)
		}
		printJSON(matches)

	case *runs > 0:
		history, err := reg.ListRuns(*runs)
		if err != nil {
			logger.Error("failed to list training runs", err)
			os.Exit(1)
		}
		printJSON(history)

	default:
		if _, err := store.Snapshot(ctx); err != nil {
			logger.Error("initial snapshot load failed", err)
			os.Exit(1)
		}
		refresher := scheduler.NewRefresher(store, cfg.RefreshSchedule)
		if err := refresher.Start(ctx); err != nil {
			logger.Error("failed to start refresher", err)
			os.Exit(1)
		}
		logger.Info("churnrisk running", utils.String("schedule", cfg.RefreshSchedule))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		refresher.Stop()
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
