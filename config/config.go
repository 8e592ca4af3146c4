package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	OSS         OSSConfig         `mapstructure:"oss"`
	OAuth       OAuthConfig       `mapstructure:"oauth"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Session     SessionConfig     `mapstructure:"session"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig 用户记录与订阅记录的键值存储
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // redis, database
	KeyPrefix string `mapstructure:"key_prefix"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type QueueConfig struct {
	JobQueue   string `mapstructure:"job_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
	Inline     bool   `mapstructure:"inline"` // true 时 API 进程内同步执行后台任务
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SessionConfig struct {
	IdleMinutes          int `mapstructure:"idle_minutes"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

// SimulationConfig 模拟远端调用的固定延迟（毫秒）
type SimulationConfig struct {
	AuthDelayMs         int `mapstructure:"auth_delay_ms"`
	SubscribeDelayMs    int `mapstructure:"subscribe_delay_ms"`
	StorySubmitDelayMs  int `mapstructure:"story_submit_delay_ms"`
	AICollectionDelayMs int `mapstructure:"ai_collection_delay_ms"`
	WalletDelayMs       int `mapstructure:"wallet_delay_ms"`
}

type MarketplaceConfig struct {
	MessagePrice  float64 `mapstructure:"message_price"`
	StoryCriteria int     `mapstructure:"story_criteria"` // 发布须确认的标准条数
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// Delay 把毫秒配置转为 time.Duration
func Delay(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "needvox.db")
	v.SetDefault("storage.backend", "redis")
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("queue.job_queue", "needvox:jobs")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("session.idle_minutes", 60)
	v.SetDefault("session.sweep_interval_minutes", 10)
	v.SetDefault("simulation.auth_delay_ms", 1000)
	v.SetDefault("simulation.subscribe_delay_ms", 1000)
	v.SetDefault("simulation.story_submit_delay_ms", 2000)
	v.SetDefault("simulation.ai_collection_delay_ms", 3000)
	v.SetDefault("simulation.wallet_delay_ms", 2000)
	v.SetDefault("marketplace.message_price", 1.5)
	v.SetDefault("marketplace.story_criteria", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
