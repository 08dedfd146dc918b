package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config 应用配置
type Config struct {
	Gateway   GatewayConfig  `mapstructure:"gateway"`
	Database  DatabaseConfig `mapstructure:"database"`
	Log       LogConfig      `mapstructure:"log"`
	Relay     RelayConfig    `mapstructure:"relay"`
}

// RelayConfig holds the multi-tenant gateway's own knobs: streaming
// timeouts, allocator health thresholds, and the Upstream profile the
// generateAssistantResponse payload is built against.
type RelayConfig struct {
	UpstreamBaseURL          string        `mapstructure:"upstream_base_url"`
	ProfileArn               string        `mapstructure:"profile_arn"`
	Region                   string        `mapstructure:"region"`
	FirstTokenTimeout        time.Duration `mapstructure:"first_token_timeout"`
	FirstTokenMaxRetries     int           `mapstructure:"first_token_max_retries"`
	StreamReadTimeout        time.Duration `mapstructure:"stream_read_timeout"`
	TokenMinSuccessRate      float64       `mapstructure:"token_min_success_rate"`
	TokenHealthCheckInterval time.Duration `mapstructure:"token_health_check_interval"`
	AuthManagerCacheMaxSize  int           `mapstructure:"auth_manager_cache_max_size"`
	ToolDescriptionMaxLength int           `mapstructure:"tool_description_max_length"`
	EncryptionKey            string        `mapstructure:"encryption_key"` // base64 nacl secretbox key, 32 bytes decoded
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Layer 1: 全局配置 ~/.ngoclaw/config.yaml
	globalDir := filepath.Join(os.Getenv("HOME"), ".ngoclaw")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	// Layer 2: 项目本地配置 (覆盖层), 用 MergeInConfig 叠加
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix("NGOCLAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 18789)
	v.SetDefault("gateway.mode", "local")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "ngoclaw.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("relay.upstream_base_url", "")
	v.SetDefault("relay.profile_arn", "")
	v.SetDefault("relay.region", "us-east-1")
	v.SetDefault("relay.first_token_timeout", "60s")
	v.SetDefault("relay.first_token_max_retries", 2)
	v.SetDefault("relay.stream_read_timeout", "30s")
	v.SetDefault("relay.token_min_success_rate", 0.5)
	v.SetDefault("relay.token_health_check_interval", "5m")
	v.SetDefault("relay.auth_manager_cache_max_size", 256)
	v.SetDefault("relay.tool_description_max_length", 2000)
	v.SetDefault("relay.encryption_key", "")
}

// ResolveEncryptionKey decodes relay.encryption_key (base64 of at
// least 32 bytes) for use as the nacl/secretbox key protecting
// refresh tokens and external API keys at rest. An invalid or unset
// key falls back to an ephemeral, process-local key — acceptable for
// local dev, but every restart invalidates previously encrypted
// values, and a CLI process run separately from the gateway will not
// be able to decrypt rows the gateway wrote (and vice versa). Set
// relay.encryption_key (or NGOCLAW_RELAY_ENCRYPTION_KEY) for any
// deployment where gwctl and the gateway share a database.
func ResolveEncryptionKey(encoded string, logger *zap.Logger) []byte {
	if encoded != "" {
		if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) >= 32 {
			return key
		}
		logger.Warn("relay.encryption_key is set but invalid (must be base64 of at least 32 bytes); generating an ephemeral key instead")
	}
	logger.Warn("no relay.encryption_key configured; generating an ephemeral encryption key for this process")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate ephemeral encryption key: %v", err))
	}
	return key
}
