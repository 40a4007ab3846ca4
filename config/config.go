package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config 保存服務啟動所需的全部設定
type Config struct {
	Environment string
	Port        string

	MongoDBURI string
	DBName     string

	JWTSecret      string
	AllowedOrigins []string

	Redis RedisConfig

	// POST /meetings 的限流設定
	ActivityRateLimit  int
	ActivityRateWindow time.Duration
	// 只有來自這些位址 (IP 或 CIDR) 的 X-Forwarded-For 才會被採用
	TrustedProxies []string

	SentryDSN       string
	OTLPEndpoint    string
	OTELServiceName string

	LogLevel  string
	LogFormat string

	RoomProvider RoomProviderConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled 未設定位址時不啟用 Redis 限流
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RoomProviderConfig 第三方視訊房間服務的 OAuth2 client credentials
type RoomProviderConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func (r RoomProviderConfig) Enabled() bool {
	return r.BaseURL != "" && r.TokenURL != "" && r.ClientID != ""
}

// LoadConfig 載入配置，優先從環境變數讀取，其次從 .env 檔案讀取
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		MongoDBURI:  getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "freelance_hub_db"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		ActivityRateLimit:  getPositiveIntEnv("ACTIVITY_RATE_LIMIT", 120),
		ActivityRateWindow: getPositiveDurationEnv("ACTIVITY_RATE_WINDOW", time.Minute),
		TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName:    getEnv("OTEL_SERVICE_NAME", "freelance-hub"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		RoomProvider: RoomProviderConfig{
			BaseURL:      getEnv("ROOM_PROVIDER_URL", ""),
			TokenURL:     getEnv("ROOM_PROVIDER_TOKEN_URL", ""),
			ClientID:     getEnv("ROOM_PROVIDER_CLIENT_ID", ""),
			ClientSecret: getEnv("ROOM_PROVIDER_CLIENT_SECRET", ""),
		},
	}
	return cfg
}

// getEnv 輔助函數，用於從環境變數獲取值，如果不存在則使用預設值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warnf("Invalid integer for %s (%q), using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// getPositiveIntEnv 與 getIntEnv 相同，但 0 或負數視為無效
func getPositiveIntEnv(key string, defaultValue int) int {
	n := getIntEnv(key, defaultValue)
	if n <= 0 {
		log.Warnf("%s must be positive (got %d), using %d", key, n, defaultValue)
		return defaultValue
	}
	return n
}

func getPositiveDurationEnv(key string, defaultValue time.Duration) time.Duration {
	d := getDurationEnv(key, defaultValue)
	if d <= 0 {
		log.Warnf("%s must be positive (got %s), using %s", key, d, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
