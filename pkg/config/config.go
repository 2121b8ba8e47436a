package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

var configDir string
var configFilePath string
var credentialsPath string

// EnvPrefix is prepended to every environment override, e.g. SOCIALHUB_BACKEND_URL.
const EnvPrefix = "SOCIALHUB"

// getConfigDir returns platform-specific config directory
func getConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		// Windows: %LOCALAPPDATA%\socialhub
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "socialhub"), nil
	}

	// Unix-like (macOS, Linux): ~/.config/socialhub
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "socialhub"), nil
}

// getSystemConfigPaths returns platform-specific system config paths
func getSystemConfigPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join(os.Getenv("ProgramFiles"), "SocialHub", "config.toml")}
	}

	return []string{
		"/etc/socialhub/config.toml",
		"/usr/local/etc/socialhub/config.toml",
	}
}

// Init initializes the configuration
func Init(configPath string) error {
	var err error
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		configDir, err = getConfigDir()
		if err != nil {
			return err
		}
		configFilePath = filepath.Join(configDir, "config.toml")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	credentialsPath = filepath.Join(configDir, "credentials")

	viper.Reset()
	viper.SetConfigType("toml")
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// System config is the foundation, user config overrides it
	for _, sysConfigPath := range getSystemConfigPaths() {
		if _, err := os.Stat(sysConfigPath); err == nil {
			viper.SetConfigFile(sysConfigPath)
			_ = viper.MergeInConfig()
			break
		}
	}

	viper.SetConfigFile(configFilePath)
	_ = viper.MergeInConfig()

	return nil
}

func setDefaults() {
	// Local Supabase stack defaults
	viper.SetDefault("backend.url", "http://localhost:54321")
	viper.SetDefault("backend.anon_key", "")
	viper.SetDefault("backend.timeout", 30)

	viper.SetDefault("storage.bucket", "media")

	viper.SetDefault("upload.sink", "http")
	viper.SetDefault("upload.initial_chunk_size", 1<<20)
	viper.SetDefault("upload.min_chunk_size", 256<<10)
	viper.SetDefault("upload.max_chunk_size", 10<<20)
	viper.SetDefault("upload.target_chunk_seconds", 2.0)
	viper.SetDefault("upload.max_retries", 5)
	viper.SetDefault("upload.retry_base_ms", 1000)
	viper.SetDefault("upload.retry_max_ms", 30000)
	viper.SetDefault("upload.max_bytes_per_sec", 0)

	viper.SetDefault("s3.endpoint", "http://localhost:54321/storage/v1/s3")
	viper.SetDefault("s3.region", "local")
	viper.SetDefault("s3.bucket", "media")
	viper.SetDefault("s3.access_key", "")
	viper.SetDefault("s3.secret_key", "")

	viper.SetDefault("breaker.min_requests", 10)
	viper.SetDefault("breaker.failure_ratio", 0.6)
	viper.SetDefault("breaker.timeout_seconds", 30)

	viper.SetDefault("cache.path", filepath.Join(configDir, "playback.db"))
	viper.SetDefault("cache.max_entries", 500)

	viper.SetDefault("preload.count", 2)
	viper.SetDefault("preload.bytes", 1<<20)
	viper.SetDefault("preload.concurrency", 2)
	viper.SetDefault("preload.max_entries", 8)

	viper.SetDefault("realtime.heartbeat_seconds", 30)

	viper.SetDefault("output.format", "text")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", filepath.Join(configDir, "socialhub.log"))
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetString returns a string configuration value
func GetString(key string) string {
	value := viper.GetString(key)
	if key == "cache.path" || key == "log.file" {
		return expandPath(value)
	}
	return value
}

// GetInt returns an int configuration value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 configuration value
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetFloat64 returns a float configuration value
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool configuration value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set overrides a value for this process only
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// SetString sets a string configuration value and persists the config file
func SetString(key string, value string) error {
	viper.Set(key, value)
	return viper.WriteConfigAs(configFilePath)
}

// Keys returns every known configuration key, sorted
func Keys() []string {
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}

// Get returns the raw value of a key
func Get(key string) interface{} {
	return viper.Get(key)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	return configDir
}

// GetConfigFilePath returns the user config file path
func GetConfigFilePath() string {
	return configFilePath
}

// GetCredentialsPath returns the path to the credentials file
func GetCredentialsPath() string {
	return credentialsPath
}
