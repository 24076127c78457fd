package config

// LogLevel represents the logging level for the application.
type LogLevel string

const (
	// LogLevelDebug is the debug logging level, providing detailed information.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the informational logging level, providing general information.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the warning logging level, indicating potential issues.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the error logging level, indicating serious issues.
	LogLevelError LogLevel = "error"
)

// LogFormat selects the slog handler used for output.
type LogFormat string

const (
	// LogFormatConsole uses the tint handler for colored, human-readable output.
	LogFormatConsole LogFormat = "console"
	// LogFormatJSON uses the stdlib JSON handler, for container/production use.
	LogFormatJSON LogFormat = "json"
)

// DatabaseDriver represents the type of database driver used in the application.
type DatabaseDriver string

const (
	// DatabaseDriverSQLite is the SQLite database driver.
	DatabaseDriverSQLite DatabaseDriver = "sqlite"
	// DatabaseDriverPostgres is the PostgreSQL database driver.
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	// DatabaseDriverMySQL is the MySQL database driver.
	DatabaseDriverMySQL DatabaseDriver = "mysql"
)

// SMTPAuthMethod represents the authentication method used for SMTP.
type SMTPAuthMethod string

const (
	// SMTPAuthMethodPlain uses plain text authentication.
	SMTPAuthMethodPlain SMTPAuthMethod = "plain"
	// SMTPAuthMethodLogin uses login authentication.
	SMTPAuthMethodLogin SMTPAuthMethod = "login"
	// SMTPAuthMethodNone does not use authentication.
	SMTPAuthMethodNone SMTPAuthMethod = "none"
)

// SMTPTLS represents the TLS configuration for SMTP connections.
type SMTPTLS string

const (
	// SMTPTLSNone indicates no TLS is used.
	SMTPTLSNone SMTPTLS = "none"
	// SMTPTLSStartTLS indicates that STARTTLS is used for secure connections.
	SMTPTLSStartTLS SMTPTLS = "starttls"
	// SMTPTLSImplicit indicates that implicit TLS is used for secure connections.
	SMTPTLSImplicit SMTPTLS = "implicit"
)
