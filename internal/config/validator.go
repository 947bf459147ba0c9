package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ExpectedEnvSchemaVersion is bumped whenever .env.example gains or renames
// a variable.
const ExpectedEnvSchemaVersion = "1.0"

var RequiredEnvVars = []string{
	"ENV_SCHEMA_VERSION",
	"TWITCH_USERNAME",
	"TWITCH_AUTH_TOKEN",
}

// envWarning flags a setting that works but is probably a mistake.
type envWarning struct {
	applies func(env func(string) string) bool
	message string
}

var envWarnings = []envWarning{
	{
		applies: func(env func(string) string) bool {
			return strings.HasPrefix(strings.ToLower(env("TWITCH_AUTH_TOKEN")), "oauth:")
		},
		message: "TWITCH_AUTH_TOKEN starts with 'oauth:' - the prefix is added automatically and should be removed",
	},
	{
		applies: func(env func(string) string) bool {
			return env("DB_DRIVER") == DBDriverPostgres && env("DB_PASSWORD") == "change_this_secure_password"
		},
		message: "DB_PASSWORD appears to be using the example value - please use a secure password",
	},
	{
		applies: func(env func(string) string) bool {
			return env("API_KEY") == "generate_with_openssl_rand_hex_32"
		},
		message: "API_KEY appears to be using the example value - generate a secure key with: openssl rand -hex 32",
	},
	{
		applies: func(env func(string) string) bool {
			return env("ACTUATOR") == ActuatorRemote && env("ACTUATOR_PASSWORD") == ""
		},
		message: "ACTUATOR_PASSWORD is empty - the remote agent will accept any client",
	},
	{
		applies: func(env func(string) string) bool {
			n, err := strconv.Atoi(env("REQUESTS_PER_SECOND"))
			return err == nil && n > MaxSafeRequestsPerSecond
		},
		message: fmt.Sprintf("REQUESTS_PER_SECOND is above %d - Twitch may throttle or flag the account", MaxSafeRequestsPerSecond),
	},
	{
		applies: func(env func(string) string) bool {
			d, err := time.ParseDuration(env("HEARTBEAT_PERIOD"))
			return err == nil && d < MinHeartbeatPeriod
		},
		message: fmt.Sprintf("HEARTBEAT_PERIOD is below %s - presence is only credited about once a minute", MinHeartbeatPeriod),
	},
}

// ValidateEnv checks the schema version and that every required variable
// is set.
func ValidateEnv() error {
	switch v := os.Getenv("ENV_SCHEMA_VERSION"); v {
	case "":
		return fmt.Errorf("ENV_SCHEMA_VERSION is not set - please update your .env file to include this field (expected: %s)", ExpectedEnvSchemaVersion)
	case ExpectedEnvSchemaVersion:
	default:
		return fmt.Errorf("ENV_SCHEMA_VERSION mismatch: expected %s, got %s - your .env file may be outdated", ExpectedEnvSchemaVersion, v)
	}

	var missing []string
	for _, name := range RequiredEnvVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateEnvWithWarnings runs ValidateEnv and then reports suspicious but
// usable settings.
func ValidateEnvWithWarnings() ([]string, error) {
	if err := ValidateEnv(); err != nil {
		return nil, err
	}
	var warnings []string
	for _, w := range envWarnings {
		if w.applies(os.Getenv) {
			warnings = append(warnings, w.message)
		}
	}
	return warnings, nil
}
