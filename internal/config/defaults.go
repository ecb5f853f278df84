package config

const (
	defaultCacheDir               = "~/.local/share/anchorage/cache"
	defaultDownloadsDir           = "~/.local/share/anchorage/cache/downloads"
	defaultLogDir                 = "~/.local/share/anchorage/logs"
	defaultIPFSBinary             = "ipfs"
	defaultRepoDir                = "~/.ipfs"
	defaultSwarmConfigFile        = "ipfs.ini"
	defaultDaemonGraceSeconds     = 5
	defaultAvailabilityTimeoutSec = 5
	defaultFetchTimeoutSeconds    = 10
	defaultCycleIntervalSeconds   = 30
	defaultPublishIntervalSeconds = 300
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultNotifyRequestTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:     defaultCacheDir,
			DownloadsDir: defaultDownloadsDir,
			LogDir:       defaultLogDir,
		},
		IPFS: IPFS{
			Binary:                 defaultIPFSBinary,
			RepoDir:                defaultRepoDir,
			SwarmConfigFile:        defaultSwarmConfigFile,
			DaemonGraceSeconds:     defaultDaemonGraceSeconds,
			AvailabilityTimeoutSec: defaultAvailabilityTimeoutSec,
			FetchTimeoutSeconds:    defaultFetchTimeoutSeconds,
		},
		Workflow: Workflow{
			CycleIntervalSeconds:   defaultCycleIntervalSeconds,
			PublishIntervalSeconds: defaultPublishIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
