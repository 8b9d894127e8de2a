package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port              string
	StorageDriver     string
	DatabaseURL       string
	JWTSecret         string
	JWTExpiresMinutes int
	CORSOrigins       string
	Timezone          string
	LoginRateLimit    int

	// Checkout
	SPPFeeTiers        map[string]int64
	DefaultSPPFee      int64
	PlaceholderFee     int64
	DiscountPolicy     string
	CodeStrategy       string
	StudentSearchLimit int
	CommitTimeout      time.Duration
	RequestTimeout     time.Duration

	SessionIdleTTL        time.Duration
	SessionReaperSchedule string

	// School profile defaults, used until settings are saved.
	SchoolName    string
	SchoolAddress string
	SchoolPhone   string
	AcademicYear  string
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiresMinutes: getEnvInt("JWT_EXPIRES_MINUTES", 1440),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		Timezone:          getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),

		SPPFeeTiers:        ParseFeeTiers(getEnv("SPP_FEE_TIERS", "X:450000,XI:500000,XII:550000")),
		DefaultSPPFee:      getEnvInt64("DEFAULT_SPP_FEE", 500000),
		PlaceholderFee:     getEnvInt64("PLACEHOLDER_FEE", 150000),
		DiscountPolicy:     strings.ToLower(getEnv("DISCOUNT_POLICY", "reject")),
		CodeStrategy:       strings.ToLower(getEnv("CODE_STRATEGY", "sequence")),
		StudentSearchLimit: getEnvInt("STUDENT_SEARCH_LIMIT", 5),
		CommitTimeout:      getEnvDuration("COMMIT_TIMEOUT", 10*time.Second),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		SessionIdleTTL:        getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionReaperSchedule: getEnv("SESSION_REAPER_SCHEDULE", "@every 1m"),

		SchoolName:    getEnv("SCHOOL_NAME", "SMA Negeri 1"),
		SchoolAddress: getEnv("SCHOOL_ADDRESS", ""),
		SchoolPhone:   getEnv("SCHOOL_PHONE", ""),
		AcademicYear:  getEnv("ACADEMIC_YEAR", "2026/2027"),
	}

	if cfg.StorageDriver == DriverPostgres && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required (or set STORAGE_DRIVER=memory)")
	}

	return cfg
}

// Location resolves Timezone, falling back to a fixed WIB offset when the
// tz database is not available in the container.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[config] WARN: timezone %q not found, using UTC+7: %v", c.Timezone, err)
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// ParseFeeTiers reads "X:450000,XI:500000" into a tier -> fee table.
// Malformed pairs are skipped.
func ParseFeeTiers(raw string) map[string]int64 {
	out := map[string]int64{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if k == "" || err != nil || n < 0 {
			continue
		}
		out[k] = n
	}
	return out
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
