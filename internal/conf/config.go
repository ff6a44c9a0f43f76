package conf

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Backend BackendConfig
	Poller  PollerConfig
	Storage StorageConfig
	MongoDB MongoConfig
	Review  ReviewConfig
	Auth    AuthConfig
	Notify  NotifyConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level string
}

// BackendConfig 外部評分後端
// BaseURL 為空時以 Origin 加上固定 Port 推導
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Origin  string        `mapstructure:"origin"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory | mongo
}

type MongoConfig struct {
	URI      string
	Database string
}

type ReviewConfig struct {
	// 人工審核結果預設只存在記憶體，重新整理即消失
	PersistDecisions bool `mapstructure:"persist_decisions"`
}

type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`
}

type NotifyConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	QueueSize     int     `mapstructure:"queue_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("backend.origin", "http://localhost")
	v.SetDefault("backend.port", 8000)
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("poller.interval", "2s")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "triage_dashboard")
	v.SetDefault("review.persist_decisions", false)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("notify.rate_per_second", 0.9)
	v.SetDefault("notify.queue_size", 1000)
}

// LoadConfig 讀取 ./config/config.yaml，環境變數 (TRIAGE_ 前綴) 可覆寫
func LoadConfig(paths ...string) (*Config, error) {
	// .env 不存在不算錯
	if err := godotenv.Load(); err == nil {
		logrus.Info("已載入 .env")
	}

	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p) // 設定檔路徑
	}
	v.SetConfigName("config") // 檔名
	v.SetConfigType("yaml")   // 格式

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 允許讀取環境變數
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logrus.Warn("找不到設定檔，使用預設值")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required when auth is enabled")
	}

	logrus.Info("設定檔讀取成功")
	return &cfg, nil
}
