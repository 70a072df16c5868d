package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	ChannelsDir       string
	Port              string
	WebhookURL        string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Retention configuration
	MaxAgeDays          int
	CleanupIntervalDays int
	SessionRetention    int
	SessionMaxAge       int

	// Application metadata
	UserAgent string
	UTCOffset int
	Debug     bool
	Version   string
}
