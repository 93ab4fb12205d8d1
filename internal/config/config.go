package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 运行配置
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	Database DatabaseConfig
	Etsy     EtsyConfig
	Shopify  ShopifyConfig
	Carrier  CarrierConfig

	// 平台 API 限速（每店铺 QPS 与突发额度）
	DispatchRatePerSec float64
	DispatchBurst      int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN 拼接 PostgreSQL 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// EtsyConfig Etsy 平台配置，店铺级凭证存在店铺表里
type EtsyConfig struct {
	BaseURL string
}

// ShopifyConfig Shopify 平台配置
type ShopifyConfig struct {
	APIVersion string
}

// CarrierConfig 物流轨迹聚合接口配置，BaseURL 为空时不启用轨迹刷新
type CarrierConfig struct {
	BaseURL  string
	ApiToken string
}

// Load 读取配置，.env 文件可选，环境变量优先
func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "fulfill"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Etsy: EtsyConfig{
			BaseURL: strings.TrimSpace(getEnvOrViper("ETSY_BASE_URL", "")),
		},
		Shopify: ShopifyConfig{
			APIVersion: getEnvOrViper("SHOPIFY_API_VERSION", "2025-07"),
		},
		Carrier: CarrierConfig{
			BaseURL:  strings.TrimSpace(getEnvOrViper("CARRIER_PROBE_URL", "")),
			ApiToken: strings.TrimSpace(getEnvOrViper("CARRIER_PROBE_TOKEN", "")),
		},
		DispatchRatePerSec: viper.GetFloat64("DISPATCH_RATE_PER_SEC"),
		DispatchBurst:      viper.GetInt("DISPATCH_BURST"),
	}

	if cfg.DispatchRatePerSec <= 0 {
		cfg.DispatchRatePerSec = 5
	}
	if cfg.DispatchBurst <= 0 {
		cfg.DispatchBurst = 10
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
