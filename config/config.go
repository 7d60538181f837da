package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	StorageMode string
	SQLitePath  string
	DataDir     string

	TopN               int
	ChartOfRecordTopN  int
	CollectionInterval time.Duration
	SourcePause        time.Duration
	BackfillDailyDelay time.Duration
	BackfillWeekDelay  time.Duration
	ChartOfRecordDay   time.Weekday
	ChartOfRecordTime  string
	SchedulerCooldown  time.Duration
	HTTPTimeout        time.Duration

	TikTokAPIKey   string
	ChromeBin      string
	RenderFallback bool

	KalshiAPIKey  string
	KalshiBaseURL string
	KalshiSeries  string

	// TrendsSongs is how many of the latest streaming chart songs get a
	// daily search interest reading.
	TrendsSongs int

	MetricsAddr string
	LogLevel    string
	LogFormat   string

	TrendsAddr     string
	TrendsDataDir  string
	TrendsCacheTTL time.Duration
	TrendsHL       string
	RedisAddr      string
	RedisPassword  string

	NWSUserAgent   string
	WeatherStation string
	WeatherLat     float64
	WeatherLon     float64
	WeatherDir     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "billboard_data"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StorageMode: strings.ToLower(getEnv("STORAGE_MODE", "csv")),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/charts.db"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		TopN:               getEnvInt("TOP_N_SONGS", 200),
		ChartOfRecordTopN:  getEnvInt("CHART_OF_RECORD_TOP_N", 100),
		CollectionInterval: time.Duration(getEnvInt("COLLECTION_INTERVAL_HOURS", 24)) * time.Hour,
		SourcePause:        getEnvDuration("SOURCE_PAUSE", 2*time.Second),
		BackfillDailyDelay: getEnvDuration("BACKFILL_DAILY_DELAY", time.Second),
		BackfillWeekDelay:  getEnvDuration("BACKFILL_WEEKLY_DELAY", 5*time.Second),
		ChartOfRecordDay:   getEnvWeekday("CHART_OF_RECORD_DAY", time.Saturday),
		ChartOfRecordTime:  getEnv("CHART_OF_RECORD_TIME", "14:00"),
		SchedulerCooldown:  getEnvDuration("SCHEDULER_COOLDOWN", 5*time.Minute),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		TikTokAPIKey:   getEnv("TIKTOK_API_KEY", ""),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		RenderFallback: getEnvBool("RENDER_FALLBACK", true),

		KalshiAPIKey:  getEnv("KALSHI_API_KEY", ""),
		KalshiBaseURL: getEnv("KALSHI_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiSeries:  getEnv("KALSHI_SERIES", "BILLBOARD"),

		TrendsSongs: getEnvInt("TRENDS_SONGS", 50),

		MetricsAddr: getEnv("METRICS_ADDR", ":9102"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),

		TrendsAddr:     getEnv("TRENDS_ADDR", ":8000"),
		TrendsDataDir:  getEnv("TRENDS_DATA_DIR", "./data"),
		TrendsCacheTTL: getEnvDuration("TRENDS_CACHE_TTL", 6*time.Hour),
		TrendsHL:       getEnv("TRENDS_HL", "en-US"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),

		NWSUserAgent:   getEnv("NWS_USER_AGENT", "chart-collector (ops@example.com)"),
		WeatherStation: getEnv("WEATHER_STATION", "KAUS"),
		WeatherLat:     getEnvFloat("WEATHER_LAT", 30.1945),
		WeatherLon:     getEnvFloat("WEATHER_LON", -97.6699),
		WeatherDir:     getEnv("WEATHER_DIR", "./data/weather"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvWeekday(key string, fallback time.Weekday) time.Weekday {
	val := strings.ToLower(os.Getenv(key))
	if val == "" {
		return fallback
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == val {
			return d
		}
	}
	return fallback
}
