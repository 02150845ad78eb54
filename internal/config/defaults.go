package config

const (
	defaultDataDir              = "~/.local/share/presswork/data"
	defaultLogDir               = "~/.local/share/presswork/logs"
	defaultRegistryPath         = "~/.config/presswork/rights_registry.yaml"
	defaultMaxRewriteLoops      = 3
	defaultMaxConcurrentStages  = 5
	defaultQueuePollInterval    = 5
	defaultErrorRetryInterval   = 15
	defaultAutoBlockThreshold   = 70
	defaultHumanReviewThreshold = 40
	defaultDisclosureTag        = "#ad"
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			RegistryPath: defaultRegistryPath,
		},
		Pipeline: Pipeline{
			MaxRewriteLoops:     defaultMaxRewriteLoops,
			MaxConcurrentStages: defaultMaxConcurrentStages,
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
		},
		Compliance: Compliance{
			AutoBlockThreshold:   defaultAutoBlockThreshold,
			HumanReviewThreshold: defaultHumanReviewThreshold,
			DisclosureTag:        defaultDisclosureTag,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Rejected:       true,
			Errors:         true,
		},
	}
}
