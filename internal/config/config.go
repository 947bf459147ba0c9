package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Account
	Username  string
	AuthToken string
	ClientID  string

	// Miner file with bet settings and the streamer list
	MinerFile   string
	MinerSchema string
	Streamers   []string // extra names from STREAMERS, merged into the file list

	// Bet actuator
	Actuator         string
	ActuatorURL      string
	ActuatorPassword string

	// Timing
	RequestsPerSecond int
	BetTimeout        time.Duration
	ShutdownGrace     time.Duration
	HeartbeatPeriod   time.Duration
	HeartbeatJitter   time.Duration

	// Status server
	Port           int
	APIKey         string   // optional; when set the API requires X-API-Key
	TrustedProxies []string // peers whose X-Forwarded-For is honoured

	// Logging
	LogLevel    string
	LogFormat   string
	LogDir      string
	ServiceName string
	Version     string
	Environment string

	// Event log storage
	DBDriver          string
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	DBMaxConns        int
	DBMaxConnIdleTime time.Duration
	DBMaxConnLifetime time.Duration
	SQLitePath        string
	EventRetention    time.Duration
	CleanupSchedule   string

	// Event publisher retries
	EventMaxRetries     int
	EventRetryDelay     time.Duration
	EventDeadLetterPath string

	// Discord notifications, disabled when the token is empty
	DiscordToken     string
	DiscordChannelID string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		Username:  strings.ToLower(getEnv("TWITCH_USERNAME", "")),
		AuthToken: getEnv("TWITCH_AUTH_TOKEN", ""),
		ClientID:  getEnv("TWITCH_CLIENT_ID", ""),

		MinerFile:   getEnv("MINER_CONFIG", ConfigPathMiner),
		MinerSchema: getEnv("MINER_SCHEMA", ConfigPathMinerSchema),
		Streamers:   getEnvAsList("STREAMERS"),

		Actuator:         strings.ToLower(getEnv("ACTUATOR", ActuatorGQL)),
		ActuatorURL:      getEnv("ACTUATOR_URL", ""),
		ActuatorPassword: getEnv("ACTUATOR_PASSWORD", ""),

		RequestsPerSecond: getEnvAsInt("REQUESTS_PER_SECOND", DefaultRequestsPerSecond),
		BetTimeout:        getEnvAsDuration("BET_TIMEOUT", DefaultBetTimeout),
		ShutdownGrace:     getEnvAsDuration("SHUTDOWN_GRACE", DefaultShutdownGrace),
		HeartbeatPeriod:   getEnvAsDuration("HEARTBEAT_PERIOD", DefaultHeartbeatPeriod),
		HeartbeatJitter:   getEnvAsDuration("HEARTBEAT_JITTER", DefaultHeartbeatJitter),

		APIKey:         getEnv("API_KEY", ""),
		TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),

		LogLevel:    getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LogDir:      getEnv("LOG_DIR", DefaultLogDir),
		ServiceName: getEnv("SERVICE_NAME", "channelpointsminer"),
		Version:     getEnv("VERSION", "dev"),
		Environment: getEnv("ENVIRONMENT", "dev"),

		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", DBDriverSQLite)),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "channelpoints"),
		DBMaxConns:        getEnvAsInt("DB_MAX_CONNS", DefaultDBMaxConns),
		DBMaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", DefaultDBMaxConnIdleTime),
		DBMaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", DefaultDBMaxConnLifetime),
		SQLitePath:        getEnv("SQLITE_PATH", DefaultSQLitePath),
		EventRetention:    getEnvAsDuration("EVENTLOG_RETENTION", DefaultEventRetention),
		CleanupSchedule:   getEnv("EVENTLOG_CLEANUP_SCHEDULE", DefaultCleanupSchedule),

		EventMaxRetries:     getEnvAsInt("EVENT_MAX_RETRIES", DefaultEventMaxRetries),
		EventRetryDelay:     getEnvAsDuration("EVENT_RETRY_DELAY", DefaultEventRetryDelay),
		EventDeadLetterPath: getEnv("EVENT_DEADLETTER_PATH", DefaultEventDeadLetterPath),

		DiscordToken:     getEnv("DISCORD_TOKEN", ""),
		DiscordChannelID: getEnv("DISCORD_CHANNEL_ID", ""),
	}

	portStr := getEnv("PORT", strconv.Itoa(DefaultPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	if cfg.Username == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("TWITCH_USERNAME and TWITCH_AUTH_TOKEN must be set")
	}

	switch cfg.Actuator {
	case ActuatorGQL:
	case ActuatorRemote:
		if cfg.ActuatorURL == "" {
			return nil, fmt.Errorf("ACTUATOR_URL must be set when ACTUATOR=%s", ActuatorRemote)
		}
	default:
		return nil, fmt.Errorf("invalid ACTUATOR value %q: expected %s or %s", cfg.Actuator, ActuatorGQL, ActuatorRemote)
	}

	switch cfg.DBDriver {
	case DBDriverNone, DBDriverPostgres, DBDriverSQLite:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER value %q", cfg.DBDriver)
	}

	if cfg.DiscordToken != "" && cfg.DiscordChannelID == "" {
		return nil, fmt.Errorf("DISCORD_CHANNEL_ID must be set when DISCORD_TOKEN is set")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the default when the variable is unset or not an integer
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration returns the default when the variable is unset or not a duration
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

