package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/api"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/classifier"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/engine"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/lockfile"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/messaging"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/scheduler"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/speech"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/store"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for command centre state data
	DefaultStateDir = "/var/lib/commandcentre"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "commandcentre.db"
	// DefaultMediaDirName is where synthesized voice notes are written
	DefaultMediaDirName = "media"
	// DefaultStepCron is the cadence for dispatching TIME_BASED steps
	DefaultStepCron = "*/1 * * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, transcriber, cl := buildProviders(ctx, flags)
	eng := engine.New(st, st, dispatcher, cl, transcriber)

	sched := scheduler.New(eng)
	if err := sched.Start(*flags.stepCron); err != nil {
		slog.Error("Failed to start scheduler", "error", err, "cron", *flags.stepCron)
		os.Exit(1)
	}
	defer sched.Stop()

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	srv := api.NewServer(st, eng, apiOpts...)

	slog.Info("Unified AI Command Centre starting", "addr", *flags.apiAddr, "state_dir", *flags.stateDir)
	if err := srv.Run(ctx); err != nil {
		slog.Error("API server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Unified AI Command Centre exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	StepCron    string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
	stepCron      *string
	mockProviders *bool
}

// initializeLogger sets up structured logging; LOG_LEVEL=DEBUG raises verbosity
func initializeLogger() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "DEBUG" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		StepCron:    os.Getenv("STEP_CRON"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.StepCron == "" {
		config.StepCron = DefaultStepCron
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"STEP_CRON", config.StepCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for command centre data (overrides $STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for classification and speech (overrides $OPENAI_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		stepCron:      flag.String("step-cron", config.StepCron, "cron expression for TIME_BASED step dispatch (overrides $STEP_CRON)"),
		mockProviders: flag.Bool("mock-providers", util.ParseBoolEnv("MOCK_PROVIDERS", false), "use in-process mock senders instead of Twilio/SES/OpenAI (overrides $MOCK_PROVIDERS)"),
	}

	flag.Parse()

	// Follow an overridden state directory when the DSN was left at the
	// derived SQLite default.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"stepCron", *flags.stepCron,
		"mockProviders", *flags.mockProviders)

	return flags
}

// backingStore is the combined persistence surface the engine consumes.
type backingStore interface {
	store.Store
	store.DedupRepo
}

// buildStore selects the SQL backend from the DSN shape and runs migrations.
func buildStore(flags Flags) (backingStore, error) {
	dsn := *flags.dbDSN
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Info("Using SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildProviders wires the outbound channels, speech pipeline and classifier.
// Each provider falls back to its mock, with a warning, when credentials are
// absent or construction fails; -mock-providers forces mocks for all of them.
func buildProviders(ctx context.Context, flags Flags) (*messaging.Dispatcher, speech.Transcriber, classifier.Classifier) {
	mock := &messaging.MockSender{}

	var text messaging.TextSender = mock
	var voice messaging.VoiceSender = mock
	var email messaging.EmailSender = mock
	var synth speech.Synthesizer = &speech.MockSynthesizer{}
	var transcriber speech.Transcriber = &speech.MockTranscriber{}
	var cl classifier.Classifier = classifier.NewKeyword()

	if *flags.mockProviders {
		slog.Warn("Mock providers forced; no external messages will be sent")
		return messaging.NewDispatcher(text, voice, email, synth), transcriber, cl
	}

	if tw, err := messaging.NewTwilioSender(); err != nil {
		slog.Warn("Twilio unavailable, WhatsApp sends are mocked", "error", err)
	} else {
		text, voice = tw, tw
	}

	if ses, err := messaging.NewSESSender(ctx); err != nil {
		slog.Warn("SES unavailable, email sends are mocked", "error", err)
	} else {
		email = ses
	}

	if *flags.openaiKey == "" {
		slog.Warn("No OpenAI API key, using keyword classifier and mock speech")
	} else {
		mediaDir := filepath.Join(*flags.stateDir, DefaultMediaDirName)
		if sp, err := speech.NewOpenAI(*flags.openaiKey, mediaDir); err != nil {
			slog.Warn("OpenAI speech unavailable, speech is mocked", "error", err)
		} else {
			synth, transcriber = sp, sp
		}
		if oc, err := classifier.NewOpenAI(*flags.openaiKey, ""); err != nil {
			slog.Warn("OpenAI classifier unavailable, falling back to keywords", "error", err)
		} else {
			cl = oc
		}
	}

	return messaging.NewDispatcher(text, voice, email, synth), transcriber, cl
}
