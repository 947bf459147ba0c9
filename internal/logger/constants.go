package logger

const (
	ContextKeySessionID = "session_id"
	ContextKeyRequestID = "request_id"
)

const (
	LogLevelWarning = "warning"

	LogFormatJSON = "json"

	EnvironmentDev = "dev"
)

// Attribute keys
const (
	AttrKeyService     = "service"
	AttrKeyVersion     = "version"
	AttrKeyEnvironment = "environment"
	AttrKeySessionID   = "session_id"
	AttrKeyRequestID   = "request_id"
)
