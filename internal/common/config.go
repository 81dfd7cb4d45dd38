package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. Defaults apply first,
// then the TOML file, then environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Scrape    ScrapeConfig    `toml:"scrape"`
	Trackers  TrackersConfig  `toml:"trackers"`
	Tailor    TailorConfig    `toml:"tailor"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name string `toml:"name"` // MCP server identity (env: JOBWORKFLOW_SERVER_NAME)
}

type DatabaseConfig struct {
	Path          string `toml:"path"`            // SQLite path (env: JOBWORKFLOW_DB)
	CacheSizeMB   int    `toml:"cache_size_mb"`   // PRAGMA cache_size
	BusyTimeoutMS int    `toml:"busy_timeout_ms"` // PRAGMA busy_timeout
	WALMode       bool   `toml:"wal_mode"`        // PRAGMA journal_mode = WAL
}

type ScrapeConfig struct {
	Terms            []string      `toml:"terms"`
	Location         string        `toml:"location"`
	Sites            []string      `toml:"sites"`
	ResultsWanted    int           `toml:"results_wanted"`
	HoursOld         int           `toml:"hours_old"`
	PreflightHost    string        `toml:"preflight_host"`
	RetryCount       int           `toml:"retry_count"`
	RetrySleep       time.Duration `toml:"retry_sleep"`
	RetryBackoff     float64       `toml:"retry_backoff"`
	CaptureDir       string        `toml:"capture_dir"`
	SaveCaptureJSON  bool          `toml:"save_capture_json"`
	UserAgent        string        `toml:"user_agent"`
	RequestTimeout   time.Duration `toml:"request_timeout"`
	RequestDelay     time.Duration `toml:"request_delay"`
	EnableJavaScript bool          `toml:"enable_javascript"` // chromedp rendering for JS-only detail pages
}

type TrackersConfig struct {
	Dir string `toml:"dir"` // tracker markdown directory, relative to JOBWORKFLOW_ROOT
}

type TailorConfig struct {
	FullResumePath     string `toml:"full_resume_path"`
	ResumeTemplatePath string `toml:"resume_template_path"`
	ApplicationsDir    string `toml:"applications_dir"`
	PDFLatexCmd        string `toml:"pdflatex_cmd"`
}

// SchedulerConfig drives optional cron-scheduled ingestion runs. Empty
// schedule disables the scheduler entirely.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron expression, e.g. "0 */2 * * *"
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// DefaultConfig returns the built-in defaults documented in the tool
// contracts. Scrape defaults mirror the scrape_jobs tool defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "jobworkflow",
		},
		Database: DatabaseConfig{
			CacheSizeMB:   10,
			BusyTimeoutMS: 5000,
			WALMode:       false,
		},
		Scrape: ScrapeConfig{
			Terms:           []string{"ai engineer", "backend engineer", "machine learning"},
			Location:        "Ontario, Canada",
			Sites:           []string{"linkedin"},
			ResultsWanted:   20,
			HoursOld:        2,
			PreflightHost:   "www.linkedin.com",
			RetryCount:      3,
			RetrySleep:      30 * time.Second,
			RetryBackoff:    2,
			CaptureDir:      "data/capture",
			SaveCaptureJSON: true,
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			RequestTimeout:  30 * time.Second,
			RequestDelay:    2 * time.Second,
		},
		Trackers: TrackersConfig{
			Dir: "trackers",
		},
		Tailor: TailorConfig{
			FullResumePath:     "data/templates/full_resume_example.md",
			ResumeTemplatePath: "data/templates/resume_skeleton_example.tex",
			ApplicationsDir:    "data/applications",
			PDFLatexCmd:        "pdflatex",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration from a TOML file over the defaults,
// then applies environment overrides. A missing file is not an error; the
// defaults plus environment apply.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", filepath.Base(path), err)
			}
		} else if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(path), err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if name := os.Getenv("JOBWORKFLOW_SERVER_NAME"); name != "" {
		config.Server.Name = name
	}
	if dbPath := os.Getenv("JOBWORKFLOW_DB"); dbPath != "" {
		config.Database.Path = dbPath
	}
}

// Validate returns non-fatal configuration warnings logged at startup.
func (c *Config) Validate() []string {
	var warnings []string
	if c.Scheduler.Enabled && c.Scheduler.Schedule == "" {
		warnings = append(warnings, "scheduler is enabled but schedule is empty; scheduled scrapes are disabled")
	}
	if c.Scrape.ResultsWanted < 1 || c.Scrape.ResultsWanted > 200 {
		warnings = append(warnings, "scrape.results_wanted outside [1,200]; tool default of 20 will be used")
	}
	if c.Logging.Level == "" {
		warnings = append(warnings, "logging.level is empty; defaulting to warn")
	}
	return warnings
}
