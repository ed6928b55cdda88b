package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Journal string `mapstructure:"journal"` // 流水事件主题
}

// BusinessConfig 业务规则配置
// 限额单位与余额一致，均为最小货币单位（分）
type BusinessConfig struct {
	MaxDeposit    int64 `mapstructure:"max_deposit"`    // 单笔存款上限
	MaxWithdrawal int64 `mapstructure:"max_withdrawal"` // 单笔取款上限
	MaxTransfer   int64 `mapstructure:"max_transfer"`   // 单笔转账上限

	AccountNumberLength     int `mapstructure:"account_number_length"`      // 账号位数
	AccountNumberMaxRetries int `mapstructure:"account_number_max_retries"` // 账号生成碰撞重试上限

	MaxRetryCount           int `mapstructure:"max_retry_count"`           // 发件箱消息最大重试次数
	StaleTransactionMinutes int `mapstructure:"stale_transaction_minutes"` // 流水滞留多久视为异常残留
	InterestIntervalHours   int `mapstructure:"interest_interval_hours"`   // 计息任务执行间隔
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
