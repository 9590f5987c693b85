package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Matting MattingConfig `mapstructure:"matting"`
	Output  OutputConfig  `mapstructure:"output"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	StagingDir   string   `mapstructure:"staging_dir"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type AssetsConfig struct {
	MarksDir       string   `mapstructure:"marks_dir"`
	BackgroundPath string   `mapstructure:"background_path"`
	Extensions     []string `mapstructure:"extensions"`
	Watch          bool     `mapstructure:"watch"`
}

// MattingConfig 抠图服务配置，provider 为 grabcut 或 remote
type MattingConfig struct {
	Provider      string        `mapstructure:"provider"`
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Iterations    int           `mapstructure:"iterations"`
	BorderSize    int           `mapstructure:"border_size"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  int           `mapstructure:"queue_timeout"`
}

type OutputConfig struct {
	JPEGQuality    int  `mapstructure:"jpeg_quality"`
	CleanupStaging bool `mapstructure:"cleanup_staging"`
}

// Load 从 YAML 文件加载配置，环境变量 MARKKIT_* 覆盖文件内容。
// 文件不存在时只使用默认值和环境变量，其余读取或校验错误直接返回
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("markkit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate 检查无法通过默认值修正的配置
func (c *Config) Validate() error {
	switch c.Matting.Provider {
	case "grabcut":
	case "remote":
		if c.Matting.Endpoint == "" {
			return fmt.Errorf("matting.endpoint is required for remote provider")
		}
	default:
		return fmt.Errorf("unknown matting provider %q", c.Matting.Provider)
	}
	if c.Matting.MaxConcurrent < 1 {
		return fmt.Errorf("matting.max_concurrent must be positive, got %d", c.Matting.MaxConcurrent)
	}
	if c.Matting.QueueTimeout < 1 {
		return fmt.Errorf("matting.queue_timeout must be at least 1 second, got %d", c.Matting.QueueTimeout)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be within 1..100, got %d", c.Output.JPEGQuality)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.staging_dir", "./user_images")
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("assets.marks_dir", "./12MARKs")
	v.SetDefault("assets.background_path", "./0.jpg")
	v.SetDefault("assets.extensions", []string{"jpg", "png", "jpeg"})
	v.SetDefault("assets.watch", true)

	v.SetDefault("matting.provider", "grabcut")
	v.SetDefault("matting.endpoint", "")
	v.SetDefault("matting.timeout", 60*time.Second)
	v.SetDefault("matting.iterations", 5)
	v.SetDefault("matting.border_size", 10)
	v.SetDefault("matting.max_concurrent", 3)
	v.SetDefault("matting.queue_timeout", 30)

	v.SetDefault("output.jpeg_quality", 90)
	v.SetDefault("output.cleanup_staging", false)
}
