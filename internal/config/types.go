// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//	.env 文件同时被 Docker Compose（--env-file）与 Go 应用（godotenv）
//	共用，确保单一数据源。
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env.dev
//   - 测试: APP_ENV=test → configs/test.yaml + .env.test
//   - 生产: APP_ENV=prod → /etc/patriots-admin/prod.yaml（凭据由 systemd 注入）
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test" // 测试环境（集成测试 + E2E 共用）
	EnvDevelopment Environment = "dev"
)

// YAMLConfig 统一 YAML 配置文件结构
type YAMLConfig struct {
	APIServer APIServerConfig `yaml:"api_server"` // API Server（端口 + URL）
	Database  DatabaseConfig  `yaml:"database"`   // 数据库
	Redis     RedisConfig     `yaml:"redis"`      // Redis 缓存
	MinIO     MinIOConfig     `yaml:"minio"`      // MinIO 对象存储
	Geocoder  GeocoderConfig  `yaml:"geocoder"`   // 地理编码服务
	Auth      AuthConfig      `yaml:"auth"`       // 认证
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Port string `yaml:"port"` // 监听端口
	URL  string `yaml:"url"`  // 对外完整 URL
}

// AuthConfig 认证配置
// 注意：JWTSecret/AdminEmail/AdminPassword 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret       string `yaml:"-"`                 // 只从 JWT_SECRET 环境变量读取
	AccessTokenTTL  string `yaml:"access_token_ttl"`  // 例如 "15m"
	RefreshTokenTTL string `yaml:"refresh_token_ttl"` // 例如 "168h"
	AdminEmail      string `yaml:"-"`                 // 只从 ADMIN_EMAIL 环境变量读取
	AdminPassword   string `yaml:"-"`                 // 只从 ADMIN_PASSWORD 环境变量读取
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" 或 "sqlite"（默认 postgres）
	Path     string `yaml:"path"`   // SQLite 文件路径
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 DB_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"` // 关闭时使用 NoOp 缓存
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`  // 是否使用 HTTPS
	Bucket    string `yaml:"bucket"`   // 默认 bucket 名称
}

// GeocoderConfig 地理编码服务配置
type GeocoderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"` // 只从 GEOCODER_API_KEY 环境变量读取
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env             Environment
	DatabaseDriver  string // "postgres" or "sqlite"
	DatabaseURL     string
	RedisEnabled    bool
	RedisURL        string
	APIPort         string
	APIServer       APIServerConfig
	MinIO           MinIOConfig
	Geocoder        GeocoderConfig
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmail      string
	AdminPassword   string
	ConfigFilePath  string // 实际加载的配置文件路径
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
