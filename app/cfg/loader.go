package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/community_sync.db" description:"Path to the SQLite database file"`

	// Application configuration
	ChannelsDir       string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WebhookURL        string `long:"webhook-url" env:"WEBHOOK_URL" description:"Webhook endpoint receiving new posts (optional, delivery disabled when empty)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for task processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Retention configuration
	MaxAgeDays          int `long:"max-age-days" env:"MAX_AGE_DAYS" default:"30" description:"Delete posts extracted more than this many days ago"`
	CleanupIntervalDays int `long:"cleanup-interval-days" env:"CLEANUP_INTERVAL_DAYS" default:"7" description:"Days between retention cleanup runs"`
	SessionRetention    int `long:"session-retention" env:"SESSION_RETENTION" default:"100" description:"Number of most recent sessions to keep"`
	SessionMaxAge       int `long:"session-max-age" env:"SESSION_MAX_AGE" default:"30" description:"Minutes after which a running session is considered stale"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Community Sync/1.0" description:"User agent string for outbound HTTP requests"`
	UTCOffset int    `long:"utc-offset" env:"UTC_OFFSET" default:"-5" description:"Fixed UTC offset in hours for relative timestamp parsing"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.UTCOffset < -12 || raw.UTCOffset > 14 {
		return nil, fmt.Errorf("invalid UTC offset: %d", raw.UTCOffset)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		ChannelsDir:         raw.ChannelsDir,
		Port:                raw.Port,
		WebhookURL:          raw.WebhookURL,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		MaxAgeDays:          raw.MaxAgeDays,
		CleanupIntervalDays: raw.CleanupIntervalDays,
		SessionRetention:    raw.SessionRetention,
		SessionMaxAge:       raw.SessionMaxAge,
		UserAgent:           raw.UserAgent,
		UTCOffset:           raw.UTCOffset,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Location returns the fixed-offset clock used to anchor relative timestamp
// parsing, independent of the host timezone.
func (c *Cfg) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffset), c.UTCOffset*3600)
}
