// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	GenAI     GenAIConfig     `mapstructure:"genai"`
	Translate TranslateConfig `mapstructure:"translate"`
	ASR       ASRConfig       `mapstructure:"asr"`
	Session   SessionConfig   `mapstructure:"session"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// GenAIConfig 存储生成模型服务相关的配置。
type GenAIConfig struct {
	APIKey         string                `mapstructure:"api_key"`
	BaseURL        string                `mapstructure:"base_url"`
	Model          string                `mapstructure:"model"`
	TimeoutSeconds int                   `mapstructure:"timeout_seconds"`
	Generation     GenAIGenerationConfig `mapstructure:"generation"`
	Safety         GenAISafetyConfig     `mapstructure:"safety"`
	Retry          GenAIRetryConfig      `mapstructure:"retry"`
}

// GenAIGenerationConfig 配置生成解码参数。
type GenAIGenerationConfig struct {
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
	TopK            int     `mapstructure:"top_k"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// GenAISafetyConfig 配置内容安全阈值，统一应用于全部危害类别。
type GenAISafetyConfig struct {
	Threshold string `mapstructure:"threshold"`
}

// GenAIRetryConfig 配置对瞬时故障的有限重试。
type GenAIRetryConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"`
	BackoffMillis int `mapstructure:"backoff_millis"`
}

// TranslateConfig 存储翻译服务相关的配置。
// Pairs 列出已部署的语言对（如 "hi-en"），不在列表中的语言对视为不可用。
type TranslateConfig struct {
	APIKey         string   `mapstructure:"api_key"`
	BaseURL        string   `mapstructure:"base_url"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Pairs          []string `mapstructure:"pairs"`
}

// ASRConfig 存储语音识别服务相关的配置。
type ASRConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Language       string  `mapstructure:"language"`
	MinConfidence  float64 `mapstructure:"min_confidence"`
}

// SessionConfig 存储会话令牌相关的配置。
type SessionConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AssistantConfig 存储助手核心行为的配置。
type AssistantConfig struct {
	KBPath       string `mapstructure:"kb_path"`
	MaxHistory   int    `mapstructure:"max_history"`
	ContextStore string `mapstructure:"context_store"` // "memory" 或 "redis"
	PersonaRules string `mapstructure:"persona_rules"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
