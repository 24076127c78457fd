// Package config defines the hub's configuration surface, loaded via
// USA-RedDragon/configulator from environment variables (prefix SIGNALHUB_)
// or an optional YAML file.
package config

// Config stores the application configuration.
type Config struct {
	LogLevel  LogLevel  `yaml:"log_level" default:"info" validate:"required,oneof=debug info warn error"`
	LogFormat LogFormat `yaml:"log_format" default:"console" validate:"required,oneof=console json"`

	HTTP      HTTP      `yaml:"http"`
	FriendAPI FriendAPI `yaml:"friend_api"`
	Database  Database  `yaml:"database"`
	KV        KV        `yaml:"kv"`
	Redis     Redis     `yaml:"redis"`
	Metrics   Metrics   `yaml:"metrics"`
	PProf     PProf     `yaml:"pprof"`
	Tracing   Tracing   `yaml:"tracing"`
	SMTP      SMTP      `yaml:"smtp"`
	Events    Events    `yaml:"events"`
}

// HTTP holds the REST/WebSocket listener configuration.
type HTTP struct {
	Bind string `yaml:"bind" default:"[::]"`
	Port int    `yaml:"port" default:"8080"`

	// MaxBodyBytes caps REST request bodies. Spec option: MAX_BODY_BYTES.
	MaxBodyBytes int64 `yaml:"max_body_bytes" default:"1000000"`
	// MaxWSConnections caps global concurrent WebSocket connections. 0 = unlimited.
	// Spec option: MAX_WS_CONNECTIONS.
	MaxWSConnections int `yaml:"max_ws_connections"`
	// MaxWSPerAddress caps WebSocket connections per client address. 0 = unlimited.
	// Spec option: MAX_WS_PER_ADDRESS.
	MaxWSPerAddress int `yaml:"max_ws_per_address"`
	// CORSOrigins is a list of allowed origins, or ["*"] for permissive.
	// Spec option: CORS_ORIGINS.
	CORSOrigins []string `yaml:"cors_origins" default:"[\"*\"]"`
}

// FriendAPI holds the friend-request HTTP API's per-request auth secret.
// Spec option: FRIEND_API_SECRET. An empty secret disables the friend API (503).
type FriendAPI struct {
	Secret string `yaml:"secret"`
}

// Database configures the optional durable SQL store. Spec option: SQL_URL
// maps to Driver+DSN-equivalent fields below; absence leaves the hub running
// entirely on in-memory state.
type Database struct {
	Driver          DatabaseDriver `yaml:"driver" default:"sqlite"`
	Host            string         `yaml:"host"`
	Port            int            `yaml:"port"`
	Database        string         `yaml:"database"`
	Username        string         `yaml:"username"`
	Password        string         `yaml:"password"`
	ExtraParameters []string       `yaml:"extra_parameters"`
}

// KV holds the presence TTL setting. Spec option: KV_PRESENCE_TTL_SECS.
// PresenceTTLSeconds is checked by Validate but read nowhere else: presence
// entries do not expire and are removed only when their connection closes.
type KV struct {
	PresenceTTLSeconds int `yaml:"presence_ttl_seconds" default:"120"`
}

// Redis, when Enabled, backs both the KV store and the pub/sub layer. Spec
// option: KV_URL enables this backend.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Metrics configures the optional Prometheus exporter. Ambient observability,
// not part of the core contract.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// PProf configures the optional net/http/pprof mux, gated behind its own
// listener so it is never reachable from the public HTTP port.
type PProf struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// Tracing configures OpenTelemetry export over OTLP/gRPC.
type Tracing struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// SMTP configures best-effort email notification of friend requests received
// while the recipient has no open connection. Disabled by default.
type SMTP struct {
	Enabled    bool           `yaml:"enabled"`
	Host       string         `yaml:"host"`
	Port       int            `yaml:"port"`
	Username   string         `yaml:"username"`
	Password   string         `yaml:"password"`
	AuthMethod SMTPAuthMethod `yaml:"auth_method"`
	TLS        SMTPTLS        `yaml:"tls"`
	From       string         `yaml:"from"`
}

// Events holds the event-queue retention setting. RetentionDays is checked by
// Validate but not read by the event queue, whose GC always uses a fixed
// 30-day window.
type Events struct {
	RetentionDays int `yaml:"retention_days" default:"30"`
}
