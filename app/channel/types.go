package channel

// Config describes one watched channel, loaded from a YAML file in the
// channels directory. The channel name is derived from the filename.
type Config struct {
	Name     string   `yaml:"-"`
	URL      string   `yaml:"url"`
	Settings Settings `yaml:"settings"`
}

type Settings struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	RedeliverLimit  int  `yaml:"redeliver_limit"`
}

const (
	DefaultIntervalMinutes = 60
	DefaultRedeliverLimit  = 20
)
