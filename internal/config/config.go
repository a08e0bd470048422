package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Paths     PathsConfig      `mapstructure:"paths"`
	Jobs      JobsConfig       `mapstructure:"jobs"`
	Database  DatabaseConfig   `mapstructure:"database"`
	ASR       ASRConfig        `mapstructure:"asr"`
	TTS       TTSConfig        `mapstructure:"tts"`
	Media     MediaConfig      `mapstructure:"media"`
	Voiceover VoiceoverConfig  `mapstructure:"voiceover"`
	Publish   PublishConfig    `mapstructure:"publish"`
	Languages []LanguageConfig `mapstructure:"languages"`
}

type ServerConfig struct {
	Port              int        `mapstructure:"port"`
	Mode              string     `mapstructure:"mode"`
	CORS              CORSConfig `mapstructure:"cors"`
	MaxUploadMB       int64      `mapstructure:"max_upload_mb"`
	AllowedExtensions []string   `mapstructure:"allowed_extensions"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB * 1024 * 1024
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type PathsConfig struct {
	UploadsDir string `mapstructure:"uploads_dir"`
	OutputsDir string `mapstructure:"outputs_dir"`
}

type JobsConfig struct {
	Workers          int           `mapstructure:"workers"`
	QueueSize        int           `mapstructure:"queue_size"`
	SnapshotBackend  string        `mapstructure:"snapshot_backend"` // file, database
	SnapshotPath     string        `mapstructure:"snapshot_path"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   "/" + d.Name,
		}
		q := u.Query()
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return d.Path
}

type ASRConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TTSConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MediaConfig struct {
	FFmpegPath        string  `mapstructure:"ffmpeg_path"`
	FFprobePath       string  `mapstructure:"ffprobe_path"`
	ExtractSampleRate int     `mapstructure:"extract_sample_rate"`
	KeepOriginalAudio bool    `mapstructure:"keep_original_audio"`
	OriginalVolume    float64 `mapstructure:"original_volume"`
}

type VoiceoverConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
}

// PublishConfig controls optional upload of dubbed outputs to object storage.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // s3, r2, s3compatible, minio
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment endpoints
	v.BindEnv("asr.base_url", "ASR_BASE_URL")
	v.BindEnv("asr.api_key", "ASR_API_KEY")
	v.BindEnv("tts.base_url", "TTS_BASE_URL")
	v.BindEnv("tts.api_key", "TTS_API_KEY")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("publish.endpoint", "S3_ENDPOINT")
	v.BindEnv("publish.access_key", "S3_ACCESS_KEY")
	v.BindEnv("publish.secret_key", "S3_SECRET_KEY")
	v.BindEnv("publish.bucket", "S3_BUCKET")
	v.BindEnv("publish.public_url", "S3_PUBLIC_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", false)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 500)
	v.SetDefault("server.allowed_extensions", []string{".mp4", ".mkv", ".avi", ".mov", ".webm"})
	v.SetDefault("paths.uploads_dir", "./uploads")
	v.SetDefault("paths.outputs_dir", "./outputs")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_size", 32)
	v.SetDefault("jobs.snapshot_backend", "file")
	v.SetDefault("jobs.snapshot_path", "./jobs_state.json")
	v.SetDefault("jobs.snapshot_interval", "30s")
	v.SetDefault("jobs.shutdown_timeout", "30s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/autodub.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "autodub")
	v.SetDefault("database.name", "autodub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("asr.base_url", "http://localhost:8001/v1")
	v.SetDefault("asr.model", "Systran/faster-whisper-large-v3")
	v.SetDefault("asr.timeout", "30m")
	v.SetDefault("tts.base_url", "http://localhost:8880/v1")
	v.SetDefault("tts.model", "kokoro")
	v.SetDefault("tts.timeout", "5m")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.extract_sample_rate", 16000)
	v.SetDefault("media.keep_original_audio", false)
	v.SetDefault("media.original_volume", 0.1)
	v.SetDefault("voiceover.sample_rate", 24000)
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.prefix", "dubbed")
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive")
	}
	switch c.Jobs.SnapshotBackend {
	case "file", "database":
	default:
		return fmt.Errorf("jobs.snapshot_backend %q: want file or database", c.Jobs.SnapshotBackend)
	}
	if c.Voiceover.SampleRate <= 0 {
		return fmt.Errorf("voiceover.sample_rate must be positive")
	}
	if c.Publish.Enabled && c.Publish.Bucket == "" {
		return fmt.Errorf("publish.bucket is required when publishing is enabled")
	}

	seen := make(map[string]bool, len(c.Languages))
	for i := range c.Languages {
		lang := &c.Languages[i]
		if err := lang.Validate(); err != nil {
			return err
		}
		if seen[lang.Code] {
			return fmt.Errorf("language %q: duplicate code", lang.Code)
		}
		seen[lang.Code] = true
	}
	return nil
}

// Language returns the catalog entry for code.
func (c *Config) Language(code string) (*LanguageConfig, bool) {
	for i := range c.Languages {
		if c.Languages[i].Code == code {
			return c.Languages[i].Clone(), true
		}
	}
	return nil, false
}
