package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/analysis"
	"github.com/ternarybob/mercatus/internal/cache"
	"github.com/ternarybob/mercatus/internal/collector"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/extractor"
	"github.com/ternarybob/mercatus/internal/llm"
	"github.com/ternarybob/mercatus/internal/marketdata"
	"github.com/ternarybob/mercatus/internal/models"
	"github.com/ternarybob/mercatus/internal/scheduler"
	"github.com/ternarybob/mercatus/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	symbolFlag   = flag.String("symbol", "", "Analyze a single symbol and print the result")
	marketFlag   = flag.Bool("market", false, "Analyze the cross-market trend and print the result")
	serveFlag    = flag.Bool("serve", false, "Run the daily analysis scheduler until interrupted")
	watchFlag    = flag.String("watch", "", "Stream live ticker updates for a symbol")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Mercatus version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Load .env if present; real environment wins
	godotenv.Load()

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("mercatus.toml"); err == nil {
			configFiles = append(configFiles, "mercatus.toml")
		} else if _, err := os.Stat("deployments/local/mercatus.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/mercatus.toml")
		}
	}

	// Startup sequence: config (defaults -> files -> env), then logger, then banner
	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Strs("symbols", config.Analysis.Symbols).
		Msg("Application configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watch mode streams prices and needs none of the analysis stack
	if *watchFlag != "" {
		runWatch(ctx, strings.ToUpper(*watchFlag))
		return
	}

	service, cleanup, err := buildService(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize analysis pipeline")
		os.Exit(1)
	}
	defer cleanup()

	switch {
	case *symbolFlag != "":
		runOnce(ctx, service, strings.ToUpper(*symbolFlag))
	case *marketFlag:
		runMarketTrend(ctx, service)
	case *serveFlag:
		runServe(ctx, service)
	default:
		runCycle(ctx, service)
	}
}

// buildService wires storage, market data, and the model chain into the
// analysis service.
func buildService(ctx context.Context) (*analysis.Service, func(), error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	storage := badger.NewAnalysisStorage(db, logger)
	cacheService := cache.NewService(storage, config.Cache.DegradedTTLDuration(), logger)

	client := marketdata.NewClient(
		marketdata.WithBaseURL(config.Market.BaseURL),
		marketdata.WithLogger(logger),
		marketdata.WithRateLimit(config.Market.RateLimit),
		marketdata.WithHTTPClient(&http.Client{Timeout: config.Market.RequestTimeoutDuration()}),
	)
	marketCollector := collector.New(client, config.Market.CandleInterval, config.Market.CandleLimit, logger)

	chain, err := llm.BuildChain(ctx, config, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	orchestrator := llm.NewOrchestrator(chain, extractor.New(), config.LLM.DefaultTimeoutDuration(), logger)
	service := analysis.NewService(marketCollector, orchestrator, cacheService, logger)

	cleanup := func() {
		llm.CloseChain(chain)
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}

	return service, cleanup, nil
}

// runOnce analyzes one symbol and prints the result as JSON.
func runOnce(ctx context.Context, service *analysis.Service, symbol string) {
	result, err := service.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		logger.Fatal().Str("symbol", symbol).Err(err).Msg("Analysis failed")
		os.Exit(1)
	}
	printResult(result)
}

// runMarketTrend analyzes the configured symbols as one market and prints
// the result as JSON.
func runMarketTrend(ctx context.Context, service *analysis.Service) {
	result, err := service.AnalyzeMarketTrend(ctx, config.Analysis.Symbols)
	if err != nil {
		logger.Fatal().Err(err).Msg("Market trend analysis failed")
		os.Exit(1)
	}
	printResult(result)
}

// runCycle runs one full analysis pass over the configured symbols.
func runCycle(ctx context.Context, service *analysis.Service) {
	sched := scheduler.New(ctx, service, config.Analysis.Symbols, logger)
	sched.RunNow()
}

// runServe runs the cron scheduler until interrupted.
func runServe(ctx context.Context, service *analysis.Service) {
	sched := scheduler.New(ctx, service, config.Analysis.Symbols, logger)
	if err := sched.Start(config.Analysis.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().Msg("Scheduler running - Press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("Shutting down")
	sched.Stop()
}

// runWatch streams live mini-ticker updates for a symbol until interrupted.
func runWatch(ctx context.Context, symbol string) {
	stream := marketdata.NewStream(config.Market.StreamURL, symbol, logger)

	logger.Info().Str("symbol", symbol).Msg("Watching live ticker - Press Ctrl+C to stop")

	err := stream.Run(ctx, func(update *marketdata.TickerUpdate) {
		logger.Info().
			Str("symbol", update.Symbol).
			Float64("price", update.Close).
			Float64("high", update.High).
			Float64("low", update.Low).
			Float64("volume", update.Volume).
			Msg("Ticker update")
	})
	if err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Stream terminated")
	}
}

func printResult(result *models.AnalysisResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode result")
		os.Exit(1)
	}
	fmt.Println(string(data))
}
