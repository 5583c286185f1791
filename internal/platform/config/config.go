package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool

	// Local API auth
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Remote gateway
	RemoteAPIURL  string
	RealtimeWSURL string

	// Sync engine
	SQLitePath             string
	RealtimeEnabled        bool
	AutoBackupTick         time.Duration
	AutoBackupInitialDelay time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "24h")
	viper.SetDefault("JWT_ISSUER", "ledgermate")
	viper.SetDefault("REMOTE_API_URL", "http://localhost:9090")
	viper.SetDefault("REALTIME_WS_URL", "ws://localhost:9090")
	viper.SetDefault("SQLITE_PATH", "ledgermate.db")
	viper.SetDefault("REALTIME_ENABLED", true)
	viper.SetDefault("AUTO_BACKUP_TICK", "1m")
	viper.SetDefault("AUTO_BACKUP_INITIAL_DELAY", "10s")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiry, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiry = 24 * time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiry)
	}
	cfg.JWTExpiryDuration = jwtExpiry
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RemoteAPIURL = viper.GetString("REMOTE_API_URL")
	if cfg.RemoteAPIURL == "" {
		log.Println("Warning: REMOTE_API_URL environment variable not set.")
	}
	cfg.RealtimeWSURL = viper.GetString("REALTIME_WS_URL")

	cfg.SQLitePath = viper.GetString("SQLITE_PATH")
	cfg.RealtimeEnabled = viper.GetBool("REALTIME_ENABLED")

	tickStr := viper.GetString("AUTO_BACKUP_TICK")
	tick, err := time.ParseDuration(tickStr)
	if err != nil {
		tick = time.Minute
		log.Printf("Warning: Invalid value for AUTO_BACKUP_TICK ('%s'). Defaulting to %s.\n", tickStr, tick)
	}
	cfg.AutoBackupTick = tick

	delayStr := viper.GetString("AUTO_BACKUP_INITIAL_DELAY")
	delay, err := time.ParseDuration(delayStr)
	if err != nil {
		delay = 10 * time.Second
		log.Printf("Warning: Invalid value for AUTO_BACKUP_INITIAL_DELAY ('%s'). Defaulting to %s.\n", delayStr, delay)
	}
	cfg.AutoBackupInitialDelay = delay

	return cfg, nil
}
