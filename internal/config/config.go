package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sqrt.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Log        LogConfig        `toml:"log"`
	Database   DatabaseConfig   `toml:"database"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Location   LocationConfig   `toml:"location"`
	Aw         AwConfig         `toml:"aw"`
	Mpd        MpdConfig        `toml:"mpd"`
	Sleep      SleepConfig      `toml:"sleep"`
	Waka       WakaConfig       `toml:"waka"`
	Messengers MessengersConfig `toml:"messengers"`
	Youtube    YoutubeConfig    `toml:"youtube"`
	Archive    ArchiveConfig    `toml:"archive"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Watch      WatchConfig      `toml:"watch"`
}

// LogConfig controls rotation of the log file.
type LogConfig struct {
	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days"`
	Compress   bool `toml:"compress"`
}

// EncryptionConfig holds paths to the age key pair used for archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for an archive vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3").
	// Credentials fall back to the default AWS chain when empty.
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the warehouse database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// LocationConfig points to the CSV files used to localize samples.
// Leaving all paths empty disables location resolution.
type LocationConfig struct {
	TzCSV        string `toml:"tz_csv"`
	ListCSV      string `toml:"list_csv"`
	HostnamesCSV string `toml:"hostnames_csv"`
}

// AwConfig configures the ActivityWatch jobs.
type AwConfig struct {
	LogsFolder      string            `toml:"logs_folder"`
	AndroidFile     string            `toml:"android_file"`
	AppsConvert     map[string]string `toml:"apps_convert"`
	SkipAfkInterval float64           `toml:"skip_afk_interval"` // seconds
	SkipAfkApps     string            `toml:"skip_afk_apps"`     // regular expression
	SkipAfkTitles   string            `toml:"skip_afk_titles"`   // regular expression
	AppInterval     AppIntervalConfig `toml:"app_interval"`
}

// AppIntervalConfig selects the apps whose daily time is computed.
type AppIntervalConfig struct {
	Apps     []string `toml:"apps"`
	Interval int      `toml:"interval"` // seconds between samples of one session
}

// MpdConfig configures the MPD jobs.
type MpdConfig struct {
	LibraryCSV string `toml:"library_csv"`
	LogFolder  string `toml:"log_folder"`
}

// SleepConfig configures the Sleep as Android job.
type SleepConfig struct {
	File  string            `toml:"file"`
	Geos  map[string]string `toml:"geos"`  // geohash -> place name
	Merge SleepMergeConfig  `toml:"merge"` // "earlier" or "later" per field
}

// SleepMergeConfig picks which session supplies each ambiguous field when
// sessions are merged. Empty values keep the default.
type SleepMergeConfig struct {
	Sched     string `toml:"sched,omitempty"`
	Comment   string `toml:"comment,omitempty"`
	Rating    string `toml:"rating,omitempty"`
	Framerate string `toml:"framerate,omitempty"`
	Geo       string `toml:"geo,omitempty"`
	Tz        string `toml:"tz,omitempty"`
	LenAdjust string `toml:"len_adjust,omitempty"`
}

// WakaConfig configures the WakaTime fetcher and loader.
type WakaConfig struct {
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key,omitempty"` // SQRT_WAKA_API_KEY overrides
	DumpFolder     string `toml:"dump_folder"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MessengersConfig locates the chat exports. Empty paths disable a source.
type MessengersConfig struct {
	TelegramFile    string  `toml:"telegram_file"`    // result.json of a Telegram Desktop export
	TelegramExclude []int64 `toml:"telegram_exclude"` // chat ids left out
	VkFolder        string  `toml:"vk_folder"`        // "messages" directory of a VK archive
	VkAuthor        string  `toml:"vk_author"`        // sender name of the account owner
	MappingFile     string  `toml:"mapping_file"`     // "telegram,vk" display name table
}

// YoutubeConfig configures the mpv watch log loader and the Data API
// client that resolves the watched videos.
type YoutubeConfig struct {
	MpvFolder      string `toml:"mpv_folder"`
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key,omitempty"` // SQRT_YOUTUBE_API_KEY overrides
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ArchiveConfig configures compression of processed inputs.
type ArchiveConfig struct {
	Root        string   `toml:"root"`
	Days        int      `toml:"days"`
	Timeout     int      `toml:"timeout"`
	ExcludeDirs []string `toml:"exclude_dirs"`
}

// ScheduleConfig holds one cron expression (with seconds) per job.
// An empty expression disables the job in the daemon.
type ScheduleConfig struct {
	Waka       string `toml:"waka"`
	Mpd        string `toml:"mpd"`
	Sleep      string `toml:"sleep"`
	Aw         string `toml:"aw"`
	Messengers string `toml:"messengers"`
	Youtube    string `toml:"youtube"`
	Archive    string `toml:"archive"`
}

// WatchConfig configures the folder watcher.
type WatchConfig struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	logsDir := filepath.Join(baseDir, "logs")
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Log:      LogConfig{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 90},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "sqrt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "sqrt.key"),
		},
		Aw: AwConfig{
			LogsFolder:      filepath.Join(logsDir, "aw"),
			SkipAfkInterval: 180,
			AppInterval:     AppIntervalConfig{Interval: 900},
		},
		Mpd: MpdConfig{
			LibraryCSV: filepath.Join(logsDir, "mpd", "mpd_library.csv"),
			LogFolder:  filepath.Join(logsDir, "mpd"),
		},
		Sleep: SleepConfig{File: filepath.Join(logsDir, "sleep", "sleep-export.csv")},
		Waka: WakaConfig{
			APIURL:         "https://wakatime.com/api/v1",
			DumpFolder:     filepath.Join(baseDir, "tmp", "waka"),
			TimeoutSeconds: 60,
		},
		Messengers: MessengersConfig{
			TelegramFile: filepath.Join(logsDir, "messengers", "telegram", "result.json"),
			VkFolder:     filepath.Join(logsDir, "messengers", "vk"),
			MappingFile:  filepath.Join(logsDir, "messengers", "mapping.csv"),
		},
		Youtube: YoutubeConfig{
			MpvFolder:      filepath.Join(logsDir, "youtube"),
			APIURL:         "https://youtube.googleapis.com/youtube/v3",
			TimeoutSeconds: 30,
		},
		Archive: ArchiveConfig{Root: logsDir, Days: 7, Timeout: 2},
		Schedule: ScheduleConfig{
			Waka:       "0 0 0 * * *",
			Mpd:        "0 0 1 * * *",
			Sleep:      "0 0 2 * * *",
			Aw:         "0 0 3 * * *",
			Messengers: "0 0 4 * * *",
			Youtube:    "0 30 4 * * *",
			Archive:    "0 0 5 * * *",
		},
		Watch: WatchConfig{DebounceSeconds: 5},
	}
}

// ApplyEnv overrides secrets from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SQRT_WAKA_API_KEY"); v != "" {
		c.Waka.APIKey = v
	}
	if v := getenv("SQRT_YOUTUBE_API_KEY"); v != "" {
		c.Youtube.APIKey = v
	}
	for i := range c.Vaults {
		if c.Vaults[i].Type != "s3" {
			continue
		}
		if v := getenv("SQRT_S3_ACCESS_KEY_ID"); v != "" {
			c.Vaults[i].S3AccessKeyID = v
		}
		if v := getenv("SQRT_S3_SECRET_ACCESS_KEY"); v != "" {
			c.Vaults[i].S3SecretAccessKey = v
		}
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to path, creating the directory first.
// The file may hold API keys, so it is only readable by the owner.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
