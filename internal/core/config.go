package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/pricewatch/internal/acquire"
)

// Config 应用程序配置
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	Files   FilesConfig   `mapstructure:"files"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
}

// MonitorConfig 采集配置
type MonitorConfig struct {
	Concurrency      int  `mapstructure:"concurrency"`        // 同时采集的商品数
	Headless         bool `mapstructure:"headless"`           // 无头模式
	NavTimeoutFirst  int  `mapstructure:"nav_timeout_first"`  // 第一次导航超时(秒)
	NavTimeoutSecond int  `mapstructure:"nav_timeout_second"` // 第二次导航超时(秒)
}

// FilesConfig 数据文件配置
type FilesConfig struct {
	Catalog      string `mapstructure:"catalog"`      // 商品目录CSV
	Observations string `mapstructure:"observations"` // 价格观测CSV
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// MetricsConfig Prometheus指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// MongoConfig MongoDB观测端配置,URI为空时禁用
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pricewatch"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.concurrency", 3)
	v.SetDefault("monitor.headless", true)
	v.SetDefault("monitor.nav_timeout_first", 40)
	v.SetDefault("monitor.nav_timeout_second", 60)

	v.SetDefault("files.catalog", "products.csv")
	v.SetDefault("files.observations", "prices.csv")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "pricewatch")
	v.SetDefault("mongo.collection", "observations")
}

// Timing 把配置换算为状态机时限参数
func (c *Config) Timing() acquire.Timing {
	t := acquire.DefaultTiming()
	if c.Monitor.NavTimeoutFirst > 0 {
		t.NavTimeoutFirst = time.Duration(c.Monitor.NavTimeoutFirst) * time.Second
	}
	if c.Monitor.NavTimeoutSecond > 0 {
		t.NavTimeoutSecond = time.Duration(c.Monitor.NavTimeoutSecond) * time.Second
	}
	return t
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
func (c *Config) MergeCLIFlags(concurrency int, headless bool, catalog, observations, mongoURI string) {
	if concurrency > 0 {
		c.Monitor.Concurrency = concurrency
	}
	c.Monitor.Headless = headless
	if catalog != "" {
		c.Files.Catalog = catalog
	}
	if observations != "" {
		c.Files.Observations = observations
	}
	if mongoURI != "" {
		c.Mongo.URI = mongoURI
	}
}
