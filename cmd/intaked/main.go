package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/TenantGuard/intake-engine/internal/api"
	"github.com/TenantGuard/intake-engine/internal/caseapi"
	"github.com/TenantGuard/intake-engine/internal/lockfile"
	"github.com/TenantGuard/intake-engine/internal/messaging"
	"github.com/TenantGuard/intake-engine/internal/store"
	"github.com/TenantGuard/intake-engine/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for intake engine state data
	DefaultStateDir = "/var/lib/intaked"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "intaked.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	caseClient, err := caseapi.NewClient(buildCaseAPIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize case API client", "error", err)
		os.Exit(1)
	}

	msgService := buildMessagingService(flags)

	apiOpts := []api.Option{
		api.WithStore(st),
		api.WithCaseClient(caseClient),
		api.WithMessagingService(msgService),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}

	server, err := api.NewServer(apiOpts...)
	if err != nil {
		slog.Error("Failed to initialize API server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping intake engine with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("Intake engine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Intake engine exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	APIAddr          string
	CaseAPIBaseURL   string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDSN      *string
	apiAddr    *string
	caseAPIURL *string
	twilioSID  *string
	twilioTok  *string
	twilioFrom *string
}

// initializeLogger sets up structured logging at the configured level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)
}

// logLevel returns debug when $INTAKED_DEBUG is set truthy, info otherwise
func logLevel() slog.Level {
	if util.ParseBoolEnv("INTAKED_DEBUG", false) {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("INTAKED_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		CaseAPIBaseURL:   os.Getenv("CASE_API_BASE_URL"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTAKED_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTAKED_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"CASE_API_BASE_URL_SET", config.CaseAPIBaseURL != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"TWILIO_AUTH_TOKEN_SET", config.TwilioAuthToken != "",
		"TWILIO_FROM_NUMBER_SET", config.TwilioFromNumber != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for intake engine data (overrides $INTAKED_STATE_DIR)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		caseAPIURL: flag.String("case-api-url", config.CaseAPIBaseURL, "case-management API base URL (overrides $CASE_API_BASE_URL)"),
		twilioSID:  flag.String("twilio-account-sid", config.TwilioAccountSID, "Twilio account SID for confirmations (overrides $TWILIO_ACCOUNT_SID)"),
		twilioTok:  flag.String("twilio-auth-token", config.TwilioAuthToken, "Twilio auth token for confirmations (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom: flag.String("twilio-from-number", config.TwilioFromNumber, "Twilio sending number for confirmations (overrides $TWILIO_FROM_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"caseAPIURL_set", *flags.caseAPIURL != "",
		"twilioConfigured", *flags.twilioSID != "" && *flags.twilioTok != "" && *flags.twilioFrom != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore constructs the session store from the configured DSN
func buildStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildCaseAPIOptions constructs case-management API client options
func buildCaseAPIOptions(flags Flags) []caseapi.Option {
	var opts []caseapi.Option
	if *flags.caseAPIURL != "" {
		opts = append(opts, caseapi.WithBaseURL(*flags.caseAPIURL))
	}
	return opts
}

// buildMessagingService constructs the confirmation channel. Without full
// Twilio credentials confirmations are disabled and submissions still work.
func buildMessagingService(flags Flags) messaging.Service {
	if *flags.twilioSID == "" || *flags.twilioTok == "" || *flags.twilioFrom == "" {
		slog.Debug("Twilio credentials not fully configured, confirmations disabled")
		return messaging.NewNoopService()
	}
	svc, err := messaging.NewTwilioService(
		messaging.WithAccountSID(*flags.twilioSID),
		messaging.WithAuthToken(*flags.twilioTok),
		messaging.WithFromNumber(*flags.twilioFrom),
	)
	if err != nil {
		slog.Warn("Failed to initialize Twilio service, confirmations disabled", "error", err)
		return messaging.NewNoopService()
	}
	return svc
}
