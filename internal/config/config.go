package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// 认证 TTL 默认值
const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖，构建最终配置
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)
	// .env 可能改写 APP_ENV
	env = parseEnv(getEnv("APP_ENV", string(env)))

	yamlCfg := loadYAMLConfig(env)

	// 凭据只从环境变量读取
	yamlCfg.Database.Password = os.Getenv("DB_PASSWORD")
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	yamlCfg.Geocoder.APIKey = os.Getenv("GEOCODER_API_KEY")
	yamlCfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	yamlCfg.Auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	yamlCfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	databaseURL := getEnv("DATABASE_URL", buildDatabaseURL(yamlCfg.Database, yamlCfg.Database.Password))

	cfg := &Config{
		Env:             env,
		DatabaseDriver:  detectDatabaseDriver(yamlCfg.Database.Driver, databaseURL),
		DatabaseURL:     databaseURL,
		RedisEnabled:    yamlCfg.Redis.Enabled,
		RedisURL:        getEnv("REDIS_URL", buildRedisURL(yamlCfg.Redis)),
		APIPort:         getEnv("API_PORT", yamlCfg.APIServer.Port),
		APIServer:       yamlCfg.APIServer,
		MinIO:           yamlCfg.MinIO,
		Geocoder:        yamlCfg.Geocoder,
		JWTSecret:       yamlCfg.Auth.JWTSecret,
		AccessTokenTTL:  parseTTL(yamlCfg.Auth.AccessTokenTTL, defaultAccessTokenTTL),
		RefreshTokenTTL: parseTTL(yamlCfg.Auth.RefreshTokenTTL, defaultRefreshTokenTTL),
		AdminEmail:      yamlCfg.Auth.AdminEmail,
		AdminPassword:   yamlCfg.Auth.AdminPassword,
		ConfigFilePath:  yamlCfg.loadedFrom,
	}

	if cfg.APIPort == "" {
		cfg.APIPort = "8080"
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	cfg := &yamlConfigInternal{
		YAMLConfig: YAMLConfig{
			APIServer: APIServerConfig{Port: "8080"},
			Database: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				User: "patriots", Name: "patriots_admin", SSLMode: "disable",
			},
			Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
			MinIO:    MinIOConfig{Endpoint: "localhost:9000", Bucket: "patriots-admin"},
			Geocoder: GeocoderConfig{BaseURL: "https://api.geocod.io"},
			Auth:     AuthConfig{AccessTokenTTL: "15m", RefreshTokenTTL: "168h"},
		},
	}

	paths := effectiveConfigPaths()

	// common.yaml（公共配置）
	for _, base := range paths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			break
		}
	}

	// {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range paths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			cfg.loadedFrom = path
			break
		}
	}

	return cfg
}

// parseTTL 解析时长配置，非法或为空时使用默认值
func parseTTL(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
