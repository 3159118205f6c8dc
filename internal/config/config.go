// Package config provides application configuration management.
package config

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultPort                 = 3001
	DefaultDatabaseDSN          = "diario.db"
	DefaultUploadPath           = "uploads"
	DefaultMaxMediaMB           = 50
	DefaultMaxAudioMB           = 25
	DefaultTranscriptionURL     = "https://api.openai.com/v1/audio/transcriptions"
	DefaultTranscriptionModel   = "whisper-1"
	DefaultTranscriptionLang    = "pt"
	DefaultTranscriptionTimeout = 120 // seconds
	DefaultBatchConcurrency     = 3
	DefaultMeterBars            = 20
	DefaultMeterTickMs          = 50
	DefaultEventLogPath         = "events.jsonl"
	DefaultLogMaxSizeMB         = 10
	DefaultLogMaxBackups        = 5
	DefaultLabelCacheSize       = 512
	DefaultLabelCacheTTLSeconds = 300
)

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	Port        int      `json:"port" yaml:"port" toml:"port"`                         // HTTP server port
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"` // Allowed origins, "*" for any
	FFmpegPath  string   `json:"ffmpeg_path" yaml:"ffmpeg_path" toml:"ffmpeg_path"`    // Path to FFmpeg binary (empty = use PATH)
	AudioInput  string   `json:"audio_input" yaml:"audio_input" toml:"audio_input"`    // Local capture device for the meter
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"` // SQLite file path or DSN
}

// UploadsConfig holds media storage settings.
type UploadsConfig struct {
	Path       string `json:"path" yaml:"path" toml:"path"`                         // Root directory for stored media
	URLBase    string `json:"url_base" yaml:"url_base" toml:"url_base"`             // Public URL prefix of Path
	MaxMediaMB int    `json:"max_media_mb" yaml:"max_media_mb" toml:"max_media_mb"` // Upload limit for media
	MaxAudioMB int    `json:"max_audio_mb" yaml:"max_audio_mb" toml:"max_audio_mb"` // Upload limit for transcription
}

// TranscriptionConfig holds speech-to-text settings.
type TranscriptionConfig struct {
	APIURL           string `json:"api_url" yaml:"api_url" toml:"api_url"`
	APIKey           string `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model            string `json:"model" yaml:"model" toml:"model"`
	Language         string `json:"language" yaml:"language" toml:"language"`
	TimeoutSeconds   int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	BatchConcurrency int    `json:"batch_concurrency" yaml:"batch_concurrency" toml:"batch_concurrency"`
}

// StorageConfig holds the optional S3 mirror settings.
type StorageConfig struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Bucket          string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix" toml:"prefix"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" toml:"secret_access_key"`
}

// MeterConfig holds level meter display settings.
type MeterConfig struct {
	Bars   int `json:"bars" yaml:"bars" toml:"bars"`
	TickMs int `json:"tick_ms" yaml:"tick_ms" toml:"tick_ms"`
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url" yaml:"url" toml:"url"` // Webhook URL for finalized events
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook" yaml:"webhook" toml:"webhook"`
}

// LogConfig holds application and audit log settings.
type LogConfig struct {
	Path         string `json:"path" yaml:"path" toml:"path"`                               // Application log file (empty = stderr only)
	EventLogPath string `json:"event_log_path" yaml:"event_log_path" toml:"event_log_path"` // Audit event log
	MaxSizeMB    int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups   int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	Debug        bool   `json:"debug" yaml:"debug" toml:"debug"`
}

// CacheConfig holds label lookup cache settings.
type CacheConfig struct {
	Size       int `json:"size" yaml:"size" toml:"size"`
	TTLSeconds int `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system" yaml:"system" toml:"system"`
	Database      DatabaseConfig      `json:"database" yaml:"database" toml:"database"`
	Uploads       UploadsConfig       `json:"uploads" yaml:"uploads" toml:"uploads"`
	Transcription TranscriptionConfig `json:"transcription" yaml:"transcription" toml:"transcription"`
	Storage       StorageConfig       `json:"storage" yaml:"storage" toml:"storage"`
	Meter         MeterConfig         `json:"meter" yaml:"meter" toml:"meter"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications" toml:"notifications"`
	Log           LogConfig           `json:"log" yaml:"log" toml:"log"`
	LabelCache    CacheConfig         `json:"label_cache" yaml:"label_cache" toml:"label_cache"`

	mu       sync.RWMutex
	filePath string
	lookup   func(string) (string, bool)
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	c := &Config{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
	c.applyDefaults()
	return c
}

// Load reads config from file, creating a default if none exists.
// Environment overrides are applied after the file is read and are never
// written back.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		if err := c.saveLocked(); err != nil {
			return err
		}
		c.applyEnv()
		return c.validate()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := c.decode(data); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()
	c.applyEnv()

	return c.validate()
}

// format returns the serialization format implied by the file extension.
func (c *Config) format() string {
	switch strings.ToLower(filepath.Ext(c.filePath)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json", "":
		return "json"
	default:
		return ""
	}
}

func (c *Config) decode(data []byte) error {
	switch c.format() {
	case "json":
		return json.Unmarshal(data, c)
	case "yaml":
		return yaml.Unmarshal(data, c)
	case "toml":
		return toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(c.filePath))
	}
}

func (c *Config) encode() ([]byte, error) {
	switch c.format() {
	case "json":
		return json.MarshalIndent(c, "", "  ")
	case "yaml":
		return yaml.Marshal(c)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(c.filePath))
	}
}

// applyEnv overrides deployment values from the environment.
func (c *Config) applyEnv() {
	if v, ok := c.lookup("API_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.System.Port = port
		}
	}
	if v, ok := c.lookup("OPENAI_API_KEY"); ok {
		c.Transcription.APIKey = v
	}
	if v, ok := c.lookup("DATABASE_DSN"); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := c.lookup("UPLOAD_PATH"); ok && v != "" {
		c.Uploads.Path = v
	}
	if v, ok := c.lookup("UPLOAD_URL_BASE"); ok && v != "" {
		c.Uploads.URLBase = v
	}
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	if c.System.Port < 1 || c.System.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.System.Port)
	}
	if c.Uploads.URLBase != "" {
		if u, err := url.Parse(c.Uploads.URLBase); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid url_base %q: must be an absolute URL", c.Uploads.URLBase)
		}
	}
	if c.Meter.Bars < 1 || c.Meter.Bars > 256 {
		return fmt.Errorf("invalid meter bars %d: must be 1-256", c.Meter.Bars)
	}
	if c.Meter.TickMs < 10 || c.Meter.TickMs > 1000 {
		return fmt.Errorf("invalid meter tick_ms %d: must be 10-1000", c.Meter.TickMs)
	}
	if c.Storage.Bucket != "" && (c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "") {
		return fmt.Errorf("storage bucket %q configured without credentials", c.Storage.Bucket)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	c.System.Port = cmp.Or(c.System.Port, DefaultPort)
	if c.System.CORSOrigins == nil {
		c.System.CORSOrigins = []string{"*"}
	}
	c.Database.DSN = cmp.Or(c.Database.DSN, DefaultDatabaseDSN)
	c.Uploads.Path = cmp.Or(c.Uploads.Path, DefaultUploadPath)
	c.Uploads.MaxMediaMB = cmp.Or(c.Uploads.MaxMediaMB, DefaultMaxMediaMB)
	c.Uploads.MaxAudioMB = cmp.Or(c.Uploads.MaxAudioMB, DefaultMaxAudioMB)
	c.Transcription.APIURL = cmp.Or(c.Transcription.APIURL, DefaultTranscriptionURL)
	c.Transcription.Model = cmp.Or(c.Transcription.Model, DefaultTranscriptionModel)
	c.Transcription.Language = cmp.Or(c.Transcription.Language, DefaultTranscriptionLang)
	c.Transcription.TimeoutSeconds = cmp.Or(c.Transcription.TimeoutSeconds, DefaultTranscriptionTimeout)
	c.Transcription.BatchConcurrency = cmp.Or(c.Transcription.BatchConcurrency, DefaultBatchConcurrency)
	c.Meter.Bars = cmp.Or(c.Meter.Bars, DefaultMeterBars)
	c.Meter.TickMs = cmp.Or(c.Meter.TickMs, DefaultMeterTickMs)
	c.Log.EventLogPath = cmp.Or(c.Log.EventLogPath, DefaultEventLogPath)
	c.Log.MaxSizeMB = cmp.Or(c.Log.MaxSizeMB, DefaultLogMaxSizeMB)
	c.Log.MaxBackups = cmp.Or(c.Log.MaxBackups, DefaultLogMaxBackups)
	c.LabelCache.Size = cmp.Or(c.LabelCache.Size, DefaultLabelCacheSize)
	c.LabelCache.TTLSeconds = cmp.Or(c.LabelCache.TTLSeconds, DefaultLabelCacheTTLSeconds)
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := c.encode()
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Setters for individual settings ---

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Webhook.URL = url
	return c.saveLocked()
}

// SetAudioInput updates the local capture device and saves the configuration.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.System.AudioInput = input
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	Port        int
	CORSOrigins []string
	FFmpegPath  string
	AudioInput  string

	// Database
	DatabaseDSN string

	// Uploads
	UploadPath    string
	UploadURLBase string
	MaxMediaBytes int64
	MaxAudioBytes int64

	// Transcription
	TranscriptionURL      string
	TranscriptionKey      string
	TranscriptionModel    string
	TranscriptionLanguage string
	TranscriptionTimeout  time.Duration
	BatchConcurrency      int

	// Storage
	S3Endpoint        string
	S3Bucket          string
	S3Prefix          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Meter
	MeterBars int
	MeterTick time.Duration

	// Notifications
	WebhookURL string

	// Logging
	LogPath      string
	EventLogPath string
	LogMaxSizeMB int
	LogBackups   int
	Debug        bool

	// Label cache
	LabelCacheSize int
	LabelCacheTTL  time.Duration
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	urlBase := c.Uploads.URLBase
	if urlBase == "" {
		urlBase = fmt.Sprintf("http://localhost:%d/uploads", c.System.Port)
	}

	return Snapshot{
		// System
		Port:        c.System.Port,
		CORSOrigins: slices.Clone(c.System.CORSOrigins),
		FFmpegPath:  c.System.FFmpegPath,
		AudioInput:  c.System.AudioInput,

		// Database
		DatabaseDSN: c.Database.DSN,

		// Uploads
		UploadPath:    c.Uploads.Path,
		UploadURLBase: strings.TrimRight(urlBase, "/"),
		MaxMediaBytes: int64(c.Uploads.MaxMediaMB) << 20,
		MaxAudioBytes: int64(c.Uploads.MaxAudioMB) << 20,

		// Transcription
		TranscriptionURL:      c.Transcription.APIURL,
		TranscriptionKey:      c.Transcription.APIKey,
		TranscriptionModel:    c.Transcription.Model,
		TranscriptionLanguage: c.Transcription.Language,
		TranscriptionTimeout:  time.Duration(c.Transcription.TimeoutSeconds) * time.Second,
		BatchConcurrency:      c.Transcription.BatchConcurrency,

		// Storage
		S3Endpoint:        c.Storage.Endpoint,
		S3Bucket:          c.Storage.Bucket,
		S3Prefix:          c.Storage.Prefix,
		S3AccessKeyID:     c.Storage.AccessKeyID,
		S3SecretAccessKey: c.Storage.SecretAccessKey,

		// Meter
		MeterBars: c.Meter.Bars,
		MeterTick: time.Duration(c.Meter.TickMs) * time.Millisecond,

		// Notifications
		WebhookURL: c.Notifications.Webhook.URL,

		// Logging
		LogPath:      c.Log.Path,
		EventLogPath: c.Log.EventLogPath,
		LogMaxSizeMB: c.Log.MaxSizeMB,
		LogBackups:   c.Log.MaxBackups,
		Debug:        c.Log.Debug,

		// Label cache
		LabelCacheSize: c.LabelCache.Size,
		LabelCacheTTL:  time.Duration(c.LabelCache.TTLSeconds) * time.Second,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasS3 reports whether the S3 mirror is configured.
func (s Snapshot) HasS3() bool {
	return s.S3Bucket != "" && s.S3AccessKeyID != "" && s.S3SecretAccessKey != ""
}

// HasTranscription reports whether a speech-to-text API key is configured.
func (s Snapshot) HasTranscription() bool {
	return s.TranscriptionKey != ""
}

// AllowsOrigin reports whether a CORS origin is allowed.
func (s Snapshot) AllowsOrigin(origin string) bool {
	return slices.Contains(s.CORSOrigins, "*") || slices.Contains(s.CORSOrigins, origin)
}
