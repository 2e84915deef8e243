package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	zl "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
	"github.com/forscht/relock/internal/dataprovider/boltdb"
	"github.com/forscht/relock/internal/dataprovider/postgres"
	"github.com/forscht/relock/internal/http"
)

// Config represents the entire configuration as defined in the YAML file.
type Config struct {
	Bench bench.Config `mapstructure:"bench"`

	Dataprovider struct {
		Bolt     boltdb.Config   `mapstructure:"boltdb"`
		Postgres postgres.Config `mapstructure:"postgres"`
	} `mapstructure:"dataprovider"`

	Frontend struct {
		HTTP http.Config `mapstructure:"http"`
	} `mapstructure:"frontend"`
}

var config = Config{Bench: bench.DefaultConfig()}

var (
	showVersion = flag.Bool("version", false, "print version information and exit")
	debugMode   = flag.Bool("debug", false, "enable debug logs")
	configFile  = flag.String("config", "", "path to relock configuration file")
	runOnce     = flag.Bool("run", false, "run the configured workload once, print its report and exit")
)

func main() {
	flag.Parse()

	// Check if a version flag is set
	if *showVersion {
		fmt.Printf("relock: %s\n", version)
		os.Exit(0)
	}

	// Set the maximum number of operating system threads to use.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Setup logger
	log.Logger = zl.New(zl.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	zl.SetGlobalLevel(zl.InfoLevel)
	if *debugMode {
		zl.SetGlobalLevel(zl.DebugLevel)
	}

	// Load config file
	initConfig()

	if *runOnce {
		os.Exit(run())
	}

	// Load data provider
	provider := loadProvider()
	if provider == nil {
		log.Fatal().Str("c", "main").Msg("dataprovider config is missing")
	}
	dp.Load(provider)
	defer func() { _ = dp.Close() }()

	// Create and start http server
	if err := http.Serv(&config.Frontend.HTTP, config.Bench); err != nil {
		log.Fatal().Str("c", "main").Err(err).Msgf("relock crashed")
	}
}

// run executes the configured workload once and returns the exit code.
// The report is stored when a data provider is configured.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := bench.Run(ctx, config.Bench)
	if err != nil {
		log.Error().Str("c", "main").Err(err).Msg("run failed")
		return 2
	}

	if provider := loadProvider(); provider != nil {
		dp.Load(provider)
		if err = dp.Save(report); err != nil {
			log.Error().Str("c", "main").Err(err).Msg("failed to save report")
		}
		_ = dp.Close()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err = enc.Encode(report); err != nil {
		log.Error().Str("c", "main").Err(err).Msg("failed to encode report")
		return 2
	}
	if report.Violations > 0 {
		log.Error().Str("c", "main").Int("violations", report.Violations).Msg("lock stack broke exclusion")
		return 1
	}
	return 0
}

func loadProvider() dp.DataProvider {
	if config.Dataprovider.Bolt.DbPath != "" {
		return boltdb.New(&config.Dataprovider.Bolt)
	}
	if config.Dataprovider.Postgres.DbURL != "" {
		return postgres.New(&config.Dataprovider.Postgres)
	}
	return nil
}

func initConfig() {
	// Setup config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/relock/")
	if *configFile != "" {
		viper.SetConfigFile(*configFile)
	}
	if err := viper.ReadInConfig(); err != nil {
		// Without a config file the defaults and the environment apply.
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			log.Fatal().Str("c", "config").Err(err).Msg("failed to read config")
		}
		log.Warn().Str("c", "config").Msg("no config file found, using defaults")
	}

	// Bind env
	_ = viper.BindEnv("bench.stack", "BENCH_STACK")
	_ = viper.BindEnv("bench.greedy", "BENCH_GREEDY")
	_ = viper.BindEnv("bench.prefer_read", "BENCH_PREFER_READ")
	_ = viper.BindEnv("bench.resolver", "BENCH_RESOLVER")
	_ = viper.BindEnv("bench.stripes", "BENCH_STRIPES")
	_ = viper.BindEnv("bench.workers", "BENCH_WORKERS")
	_ = viper.BindEnv("bench.ops", "BENCH_OPS")
	_ = viper.BindEnv("bench.keys", "BENCH_KEYS")
	_ = viper.BindEnv("bench.read_ratio", "BENCH_READ_RATIO")
	_ = viper.BindEnv("bench.reentry", "BENCH_REENTRY")
	_ = viper.BindEnv("bench.hold", "BENCH_HOLD")
	_ = viper.BindEnv("bench.seed", "BENCH_SEED")

	_ = viper.BindEnv("dataprovider.boltdb.db_path", "BOLTDB_DB_PATH")
	_ = viper.BindEnv("dataprovider.postgres.db_url", "POSTGRES_DB_URL")

	_ = viper.BindEnv("frontend.http.addr", "HTTP_ADDR")
	_ = viper.BindEnv("frontend.http.username", "HTTP_USERNAME")
	_ = viper.BindEnv("frontend.http.password", "HTTP_PASSWORD")
	_ = viper.BindEnv("frontend.http.guest_mode", "HTTP_GUEST_MODE")
	_ = viper.BindEnv("frontend.http.run_timeout", "HTTP_RUN_TIMEOUT")
	_ = viper.BindEnv("frontend.http.https_addr", "HTTPS_ADDR")
	_ = viper.BindEnv("frontend.http.https_crtpath", "HTTPS_CRTPATH")
	_ = viper.BindEnv("frontend.http.https_keypath", "HTTPS_KEYPATH")

	err := viper.Unmarshal(&config)
	if err != nil {
		log.Fatal().Str("c", "config").Err(err).Msg("failed to decode config into struct")
	}
}
