// Package config loads the assistant configuration with the precedence
// flags > environment variables > config file > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Store backends selectable via store_backend.
const (
	BackendGoogle = "google"
	BackendCalDAV = "caldav"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// GoogleCredentials is the structure of a Google OAuth credentials JSON
// file as downloaded from Google Cloud Console.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads OAuth client credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (desktop apps), then "web".
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}
	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// CalDAVConfig configures the CalDAV backend.
type CalDAVConfig struct {
	ServerURL    string `json:"server_url,omitempty"`    // e.g. "https://caldav.icloud.com"
	Username     string `json:"username,omitempty"`       // account email
	Password     string `json:"password,omitempty"`       // app-specific password
	CalendarPath string `json:"calendar_path,omitempty"`  // calendar collection path
}

// LLMConfig configures the completion collaborator. The API key is never
// read from the config file, only from the OPENAI_API_KEY environment
// variable.
type LLMConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "console"
}

// Config holds the full assistant configuration.
type Config struct {
	StoreBackend string `json:"store_backend,omitempty"` // google | caldav | sqlite | memory

	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	GoogleTokenPath       string `json:"google_token_path,omitempty"`
	GoogleCalendarID      string `json:"google_calendar_id,omitempty"`

	CalDAV CalDAVConfig `json:"caldav,omitempty"`

	SQLitePath string `json:"sqlite_path,omitempty"`

	LLM LLMConfig `json:"llm,omitempty"`
	Log LogConfig `json:"log,omitempty"`

	// DefaultDurationMinutes is the event length assumed when an intent
	// carries neither an end time nor a duration.
	DefaultDurationMinutes int `json:"default_duration_minutes,omitempty"`
}

// loadFile reads configuration from a JSON file.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Load assembles the configuration. configFile may be empty; flag values
// passed in override environment variables, which override the file.
func Load(configFile, backendFlag, logLevelFlag string) (*Config, error) {
	var cfg Config

	// Step 1: config file.
	if configFile != "" {
		fileCfg, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *fileCfg
	}

	// Step 2: environment overrides.
	overlayEnv(&cfg)

	// Step 3: flags (highest priority).
	if backendFlag != "" {
		cfg.StoreBackend = backendFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}

	// Step 4: defaults and validation.
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendMemory
	}
	if cfg.GoogleCalendarID == "" {
		cfg.GoogleCalendarID = "primary"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "siriplus.db"
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = 60
	}

	switch cfg.StoreBackend {
	case BackendGoogle:
		if cfg.GoogleCredentialsPath == "" {
			return nil, fmt.Errorf("google_credentials_path must be provided via config file or GOOGLE_CREDENTIALS_PATH for the google backend")
		}
		if cfg.GoogleTokenPath == "" {
			return nil, fmt.Errorf("google_token_path must be provided via config file or GOOGLE_TOKEN_PATH for the google backend")
		}
	case BackendCalDAV:
		if cfg.CalDAV.ServerURL == "" || cfg.CalDAV.Username == "" || cfg.CalDAV.Password == "" {
			return nil, fmt.Errorf("caldav server_url, username, and password must all be provided for the caldav backend")
		}
		if cfg.CalDAV.CalendarPath == "" {
			cfg.CalDAV.CalendarPath = fmt.Sprintf("/%s/calendars/home/", cfg.CalDAV.Username)
		}
	case BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("store_backend must be one of google, caldav, sqlite, memory; got %q", cfg.StoreBackend)
	}

	return &cfg, nil
}

func overlayEnv(cfg *Config) {
	if v := os.Getenv("SIRIPLUS_STORE"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_PATH"); v != "" {
		cfg.GoogleCredentialsPath = v
	}
	if v := os.Getenv("GOOGLE_TOKEN_PATH"); v != "" {
		cfg.GoogleTokenPath = v
	}
	if v := os.Getenv("GOOGLE_CALENDAR_ID"); v != "" {
		cfg.GoogleCalendarID = v
	}
	if v := os.Getenv("CALDAV_SERVER_URL"); v != "" {
		cfg.CalDAV.ServerURL = v
	}
	if v := os.Getenv("CALDAV_USERNAME"); v != "" {
		cfg.CalDAV.Username = v
	}
	if v := os.Getenv("CALDAV_PASSWORD"); v != "" {
		cfg.CalDAV.Password = v
	}
	if v := os.Getenv("CALDAV_CALENDAR_PATH"); v != "" {
		cfg.CalDAV.CalendarPath = v
	}
	if v := os.Getenv("SIRIPLUS_DB_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SIRIPLUS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SIRIPLUS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
