package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidLogFormat indicates that the provided log format is not valid.
	ErrInvalidLogFormat = errors.New("invalid log format provided")
	// ErrInvalidHTTPHost indicates that the provided HTTP bind address is not valid.
	ErrInvalidHTTPHost = errors.New("invalid HTTP bind address provided")
	// ErrInvalidHTTPPort indicates that the provided HTTP port is not valid.
	ErrInvalidHTTPPort = errors.New("invalid HTTP port provided")
	// ErrInvalidMaxBodyBytes indicates the configured body limit is not positive.
	ErrInvalidMaxBodyBytes = errors.New("max body bytes must be positive")
	// ErrInvalidCORSOrigins indicates no CORS origins were configured.
	ErrInvalidCORSOrigins = errors.New("at least one CORS origin (or \"*\") is required")
	// ErrInvalidRedisHost indicates that the provided Redis host is not valid.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
	// ErrInvalidDatabaseDriver indicates that the provided database driver is not valid.
	ErrInvalidDatabaseDriver = errors.New("invalid database driver provided")
	// ErrInvalidDatabaseHost indicates that the provided database host is not valid.
	ErrInvalidDatabaseHost = errors.New("invalid database host provided")
	// ErrInvalidDatabasePort indicates that the provided database port is not valid.
	ErrInvalidDatabasePort = errors.New("invalid database port provided")
	// ErrInvalidDatabaseName indicates that the provided database name is not valid.
	ErrInvalidDatabaseName = errors.New("invalid database name provided")
	// ErrInvalidKVPresenceTTL indicates the presence TTL is not positive.
	ErrInvalidKVPresenceTTL = errors.New("KV presence TTL seconds must be positive")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the provided PProf server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid PProf server bind address provided")
	// ErrInvalidPProfPort indicates that the provided PProf server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid PProf server port provided")
	// ErrInvalidSMTPHost indicates that the provided SMTP host is not valid.
	ErrInvalidSMTPHost = errors.New("invalid SMTP host provided")
	// ErrInvalidSMTPPort indicates that the provided SMTP port is not valid.
	ErrInvalidSMTPPort = errors.New("invalid SMTP port provided")
	// ErrInvalidSMTPUsername indicates that the SMTP username is required when SMTP authentication is enabled.
	ErrInvalidSMTPUsername = errors.New("SMTP username is required when SMTP authentication is enabled")
	// ErrInvalidSMTPPassword indicates that the SMTP password is required when SMTP authentication is enabled.
	ErrInvalidSMTPPassword = errors.New("SMTP password is required when SMTP authentication is enabled")
	// ErrInvalidSMTPAuthMethod indicates that the provided SMTP authentication method is not valid.
	ErrInvalidSMTPAuthMethod = errors.New("invalid SMTP authentication method provided")
	// ErrInvalidSMTPTLS indicates that the provided SMTP TLS setting is not valid.
	ErrInvalidSMTPTLS = errors.New("invalid SMTP TLS setting provided")
	// ErrSMTPFromRequired indicates that the 'from' address is required when SMTP is enabled.
	ErrSMTPFromRequired = errors.New("SMTP 'from' address is required when SMTP is enabled")
	// ErrInvalidEventsRetention indicates the event retention window is not positive.
	ErrInvalidEventsRetention = errors.New("events retention days must be positive")
)

// Validate validates the HTTP configuration.
func (h HTTP) Validate() error {
	if h.Bind == "" {
		return ErrInvalidHTTPHost
	}
	if h.Port <= 0 || h.Port > 65535 {
		return ErrInvalidHTTPPort
	}
	if h.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}
	if len(h.CORSOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}
	return nil
}

// Validate validates the Redis configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}
	return nil
}

// Validate validates the Database configuration. A zero-value Driver means
// no SQL backend is configured and the hub runs in-memory only.
func (d Database) Validate() error {
	if d.Driver == "" {
		return nil
	}
	if d.Driver != DatabaseDriverSQLite &&
		d.Driver != DatabaseDriverPostgres &&
		d.Driver != DatabaseDriverMySQL {
		return ErrInvalidDatabaseDriver
	}
	if d.Driver != DatabaseDriverSQLite && d.Host == "" {
		return ErrInvalidDatabaseHost
	}
	if d.Driver != DatabaseDriverSQLite && (d.Port <= 0 || d.Port > 65535) {
		return ErrInvalidDatabasePort
	}
	if d.Driver != DatabaseDriverSQLite && d.Database == "" {
		return ErrInvalidDatabaseName
	}
	return nil
}

// Validate validates the KV configuration.
func (k KV) Validate() error {
	if k.PresenceTTLSeconds <= 0 {
		return ErrInvalidKVPresenceTTL
	}
	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}
	return nil
}

// Validate validates the SMTP configuration.
func (s SMTP) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Host == "" {
		return ErrInvalidSMTPHost
	}
	if s.Port <= 0 || s.Port > 65535 {
		return ErrInvalidSMTPPort
	}
	if s.AuthMethod != SMTPAuthMethodPlain &&
		s.AuthMethod != SMTPAuthMethodLogin &&
		s.AuthMethod != SMTPAuthMethodNone {
		return ErrInvalidSMTPAuthMethod
	}
	if s.TLS != SMTPTLSNone &&
		s.TLS != SMTPTLSStartTLS &&
		s.TLS != SMTPTLSImplicit {
		return ErrInvalidSMTPTLS
	}
	if s.From == "" {
		return ErrSMTPFromRequired
	}
	if s.AuthMethod != SMTPAuthMethodNone && s.Username == "" {
		return ErrInvalidSMTPUsername
	}
	if s.AuthMethod != SMTPAuthMethodNone && s.Password == "" {
		return ErrInvalidSMTPPassword
	}
	return nil
}

// Validate validates the Events configuration.
func (e Events) Validate() error {
	if e.RetentionDays <= 0 {
		return ErrInvalidEventsRetention
	}
	return nil
}

// Validate validates the full configuration tree. FriendAPI and Tracing carry
// no required fields: an empty secret/endpoint just disables that surface.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.KV.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.SMTP.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return nil
}
