package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/VedPanse/siriplus/internal/assistant"
	"github.com/VedPanse/siriplus/internal/auth"
	"github.com/VedPanse/siriplus/internal/config"
	"github.com/VedPanse/siriplus/internal/llm"
	"github.com/VedPanse/siriplus/internal/logger"
	"github.com/VedPanse/siriplus/internal/store"
	"github.com/VedPanse/siriplus/internal/tui"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Siri++

A conversational calendar assistant. Type natural requests like
"Book lunch with Sam at noon" or "Move standup to 9:30" and the
assistant creates, edits, and deletes events on today's calendar.
Anything that is not a calendar request is answered as plain chat.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help              Show this help message and exit
    -v, --verbose           Enable verbose output (show DEBUG logs)
    --config FILE           Path to JSON config file (optional)
    --store BACKEND         Event store backend: google, caldav, sqlite, memory
                            (overrides config file and SIRIPLUS_STORE env var)
    --log-level LEVEL       Log level: debug, info, warn, error
                            (overrides config file and SIRIPLUS_LOG_LEVEL env var)
    --list                  Print today's events and exit (no chat UI)

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables
    3. Config file (--config)
    4. Defaults (memory backend, 60 minute default event length)

CONFIG FILE:
    Settings are specified in a JSON config file. Example:
    {
      "store_backend": "google",
      "google_credentials_path": "/path/to/credentials.json",
      "google_token_path": "/path/to/token.json",
      "google_calendar_id": "primary",
      "sqlite_path": "siriplus.db",
      "caldav": {
        "server_url": "https://caldav.icloud.com",
        "username": "your-email@icloud.com",
        "password": "app-specific-password",
        "calendar_path": "/your-email/calendars/home/"
      },
      "llm": {
        "base_url": "https://api.openai.com/v1",
        "model": "gpt-4o-mini"
      },
      "default_duration_minutes": 60
    }

    The Google credentials JSON file should be in the format downloaded from
    Google Cloud Console. It should contain either an "installed" or "web"
    section with "client_id" and "client_secret" fields.

    For iCloud CalDAV, you need an app-specific password.
    Generate one at: https://appleid.apple.com/account/manage

ENVIRONMENT VARIABLES:
    SIRIPLUS_STORE            Event store backend
    GOOGLE_CREDENTIALS_PATH   Path to Google OAuth credentials JSON file
    GOOGLE_TOKEN_PATH         Path to store the Google OAuth token
    GOOGLE_CALENDAR_ID        Google calendar to operate on (default: primary)
    CALDAV_SERVER_URL         CalDAV server URL
    CALDAV_USERNAME           CalDAV account email
    CALDAV_PASSWORD           CalDAV app-specific password
    CALDAV_CALENDAR_PATH      CalDAV calendar collection path
    SIRIPLUS_DB_PATH          SQLite database path
    OPENAI_API_KEY            API key for the chat model (never read from file)
    OPENAI_BASE_URL           OpenAI-compatible API base URL
    OPENAI_MODEL              Chat model name
    SIRIPLUS_LOG_LEVEL        Log level
    SIRIPLUS_LOG_FORMAT       Log format: json or console

    A .env file in the working directory is loaded if present.

DESCRIPTION:
    The assistant works on today's events only. On every message it asks the
    chat model to interpret the request as a calendar intent; when the model
    returns one, the assistant applies it to the configured event store and
    re-reads the store so the calendar stays the source of truth. Without an
    API key the calendar still works for direct listing via --list, but chat
    turns report that the assistant is offline.

    Authentication:
    - Google backend: OAuth 2.0 (you'll be prompted on first run)
    - CalDAV backend: App-specific password (no OAuth)
    - SQLite and memory backends need no credentials

EXAMPLES:
    # Chat against a local SQLite calendar
    %s --store sqlite

    # Chat against Google Calendar
    %s --config ~/.siriplus.json --store google

    # Print today's schedule and exit
    %s --store sqlite --list

    # Show help
    %s --help

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output (show DEBUG logs)")
	verboseFlagShort := flag.Bool("v", false, "Enable verbose output (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	storeBackend := flag.String("store", "", "Event store backend: google, caldav, sqlite, memory")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	listFlag := flag.Bool("list", false, "Print today's events and exit")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	level := *logLevel
	if level == "" && (*verboseFlag || *verboseFlagShort) {
		level = "debug"
	}

	cfg, err := config.Load(*configFile, *storeBackend, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open event store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer st.Close()

	responder := llm.NewClient(cfg.LLM.BaseURL, os.Getenv("OPENAI_API_KEY"), cfg.LLM.Model)
	if !responder.IsAvailable() {
		log.Warn("OPENAI_API_KEY is not set; chat turns will report the assistant as offline")
	}

	session := assistant.NewSession(st, responder, log, cfg.DefaultDurationMinutes)

	if *listFlag {
		if err := session.RefreshEvents(ctx); err != nil {
			log.Fatal("failed to load today's events", zap.Error(err))
		}
		fmt.Println(session.Summary())
		return
	}

	program := tea.NewProgram(tui.New(session), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal("chat UI exited with an error", zap.Error(err))
	}
}

// openStore builds the configured event store backend.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.EventStore, error) {
	switch cfg.StoreBackend {
	case config.BackendGoogle:
		clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load Google credentials: %w", err)
		}

		oauthConfig := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "http://127.0.0.1:8080", // Will be updated dynamically by auth flow
			Scopes: []string{
				"https://www.googleapis.com/auth/calendar",
				"https://www.googleapis.com/auth/calendar.events",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		}

		tokenStore := auth.NewFileTokenStore(cfg.GoogleTokenPath)
		httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, tokenStore)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate Google account: %w", err)
		}
		return store.NewGoogleStore(ctx, httpClient, cfg.GoogleCalendarID)

	case config.BackendCalDAV:
		return store.NewCalDAVStore(cfg.CalDAV.ServerURL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.CalendarPath), nil

	case config.BackendSQLite:
		log.Debug("opening sqlite event store", zap.String("path", cfg.SQLitePath))
		return store.OpenSQLite(cfg.SQLitePath)

	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
