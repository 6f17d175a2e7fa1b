package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// Config stores runtime configuration for the producer.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	InternalJobToken   string
	LogLevel           logging.Level
	DBURL              string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	MigrateOnStart     bool
	CacheEnabled       bool
	CacheTTL           time.Duration

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	ProviderUserAgent             string
	ProviderTimeout               time.Duration
	ProviderMaxRetries            int
	ProviderRetryBackoff          time.Duration
	ProviderCacheTTL              time.Duration
	ProviderCircuitEnabled        bool
	ProviderCircuitFailureCount   int
	ProviderCircuitOpenTimeout    time.Duration
	ProviderCircuitHalfOpenMaxReq int

	NATSEnabled          bool
	NATSURL              string
	NATSConnectionName   string
	NATSMaxReconnects    int
	NATSReconnectWait    time.Duration
	NATSEventsStream     string
	NATSSubjectPrefix    string
	NATSDedupeWindow     time.Duration
	NATSDocumentsStream  string
	NATSDocumentsSubject string
	NATSConsumerDurable  string
	NATSAckWait          time.Duration
	NATSMaxDeliver       int
	NATSMaxInFlight      int
	NATSNakDelay         time.Duration

	RelayEnabled         bool
	RelayInterval        time.Duration
	RelayWorkers         int
	RelayChunkSize       int
	RelayMaxStatesPerRun int
	InboxConsumerID      string
	InboxCleanupInterval time.Duration
	InboxRetention       time.Duration
	EnrichmentWorkers    int
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                strings.TrimSpace(getEnv("APP_SERVICE_NAME", "sportsdata-producer")),
		ServiceVersion:             strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		HTTPAddr:                   strings.TrimSpace(getEnv("APP_HTTP_ADDR", ":8080")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		LogLevel:                   logging.ParseLevel(getEnv("LOG_LEVEL", getEnv("APP_LOG_LEVEL", "info"))),
		DBURL:                      strings.TrimSpace(getEnv("DB_URL", "")),
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		UptraceDSN:                 strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		ProviderUserAgent:          strings.TrimSpace(getEnv("PROVIDER_USER_AGENT", "sportsdata-producer/1.0")),
		NATSURL:                    strings.TrimSpace(getEnv("NATS_URL", "nats://127.0.0.1:4222")),
		NATSEventsStream:           strings.TrimSpace(getEnv("NATS_EVENTS_STREAM", "SPORTSDATA_EVENTS")),
		NATSSubjectPrefix:          strings.Trim(strings.TrimSpace(getEnv("NATS_SUBJECT_PREFIX", "sportsdata.events")), "."),
		NATSDocumentsStream:        strings.TrimSpace(getEnv("NATS_DOCUMENTS_STREAM", "SPORTSDATA_DOCUMENTS")),
		NATSDocumentsSubject:       strings.TrimSpace(getEnv("NATS_DOCUMENTS_SUBJECT", "sportsdata.documents.>")),
		NATSConsumerDurable:        strings.TrimSpace(getEnv("NATS_CONSUMER_DURABLE", "sportsdata-producer-documents")),
		InboxConsumerID:            strings.TrimSpace(getEnv("INBOX_CONSUMER_ID", "document-processor")),
	}
	cfg.NATSConnectionName = strings.TrimSpace(getEnv("NATS_CONNECTION_NAME", cfg.ServiceName))
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}

	p := parser{}
	cfg.SwaggerEnabled = p.bool("SWAGGER_ENABLED", swaggerDefault)
	cfg.ReadTimeout = p.duration("APP_READ_TIMEOUT", "10s")
	cfg.WriteTimeout = p.duration("APP_WRITE_TIMEOUT", "15s")
	cfg.ShutdownTimeout = p.duration("APP_SHUTDOWN_TIMEOUT", "15s")
	cfg.DBMaxOpenConns = p.int("DB_MAX_OPEN_CONNS", 20)
	cfg.DBMaxIdleConns = p.int("DB_MAX_IDLE_CONNS", 10)
	cfg.DBConnMaxLifetime = p.duration("DB_CONN_MAX_LIFETIME", "30m")
	cfg.MigrateOnStart = p.bool("MIGRATE_ON_START", "false")
	cfg.CacheEnabled = p.bool("CACHE_ENABLED", "true")
	cfg.CacheTTL = p.duration("CACHE_TTL", "60s")

	cfg.PprofEnabled = p.bool("PPROF_ENABLED", "false")
	cfg.UptraceEnabled = p.bool("UPTRACE_ENABLED", "false")
	cfg.UptraceLogsEnabled = p.bool("UPTRACE_LOGS_ENABLED", "true")
	cfg.PyroscopeEnabled = p.bool("PYROSCOPE_ENABLED", "false")
	cfg.PyroscopeUploadRate = p.duration("PYROSCOPE_UPLOAD_RATE", "15s")

	cfg.ProviderTimeout = p.duration("PROVIDER_TIMEOUT", "20s")
	cfg.ProviderMaxRetries = p.int("PROVIDER_MAX_RETRIES", 2)
	cfg.ProviderRetryBackoff = p.duration("PROVIDER_RETRY_BACKOFF", "1s")
	cfg.ProviderCacheTTL = p.duration("PROVIDER_CACHE_TTL", "0s")
	cfg.ProviderCircuitEnabled = p.bool("PROVIDER_CIRCUIT_ENABLED", "true")
	cfg.ProviderCircuitFailureCount = p.int("PROVIDER_CIRCUIT_FAILURE_COUNT", 5)
	cfg.ProviderCircuitOpenTimeout = p.duration("PROVIDER_CIRCUIT_OPEN_TIMEOUT", "15s")
	cfg.ProviderCircuitHalfOpenMaxReq = p.int("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ", 2)

	cfg.NATSEnabled = p.bool("NATS_ENABLED", "true")
	cfg.NATSMaxReconnects = p.int("NATS_MAX_RECONNECTS", -1)
	cfg.NATSReconnectWait = p.duration("NATS_RECONNECT_WAIT", "2s")
	cfg.NATSDedupeWindow = p.duration("NATS_DEDUPE_WINDOW", "2m")
	cfg.NATSAckWait = p.duration("NATS_ACK_WAIT", "30s")
	cfg.NATSMaxDeliver = p.int("NATS_MAX_DELIVER", 10)
	cfg.NATSMaxInFlight = p.int("NATS_MAX_IN_FLIGHT", 8)
	cfg.NATSNakDelay = p.duration("NATS_NAK_DELAY", "5s")

	cfg.RelayEnabled = p.bool("RELAY_ENABLED", "true")
	cfg.RelayInterval = p.duration("RELAY_INTERVAL", "1s")
	cfg.RelayWorkers = p.int("RELAY_WORKERS", 4)
	cfg.RelayChunkSize = p.int("RELAY_CHUNK_SIZE", 256)
	cfg.RelayMaxStatesPerRun = p.int("RELAY_MAX_STATES_PER_RUN", 0)
	cfg.InboxCleanupInterval = p.duration("INBOX_CLEANUP_INTERVAL", "1h")
	cfg.InboxRetention = p.duration("INBOX_RETENTION", "72h")
	cfg.EnrichmentWorkers = p.int("ENRICHMENT_WORKERS", 8)
	if p.err != nil {
		return Config{}, p.err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if c.AppEnv != EnvDev && c.InternalJobToken == "" {
		return fmt.Errorf("INTERNAL_JOB_TOKEN is required when APP_ENV=%s", c.AppEnv)
	}
	if c.UptraceEnabled && c.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if c.PprofEnabled && c.PprofAddr == "" {
		return fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}
	if c.PyroscopeEnabled {
		if c.PyroscopeServerAddress == "" {
			return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
		}
		if c.PyroscopeAppName == "" {
			return fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
		}
	}
	if c.NATSEnabled {
		if c.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
		}
		if c.NATSEventsStream == "" || c.NATSDocumentsStream == "" {
			return fmt.Errorf("NATS_EVENTS_STREAM and NATS_DOCUMENTS_STREAM cannot be empty")
		}
		if c.NATSSubjectPrefix == "" {
			return fmt.Errorf("NATS_SUBJECT_PREFIX cannot be empty")
		}
		if c.NATSConsumerDurable == "" {
			return fmt.Errorf("NATS_CONSUMER_DURABLE cannot be empty")
		}
	}
	if c.InboxConsumerID == "" {
		return fmt.Errorf("INBOX_CONSUMER_ID cannot be empty")
	}

	positive := []struct {
		key string
		val time.Duration
	}{
		{"APP_READ_TIMEOUT", c.ReadTimeout},
		{"APP_WRITE_TIMEOUT", c.WriteTimeout},
		{"APP_SHUTDOWN_TIMEOUT", c.ShutdownTimeout},
		{"CACHE_TTL", c.CacheTTL},
		{"PYROSCOPE_UPLOAD_RATE", c.PyroscopeUploadRate},
		{"PROVIDER_TIMEOUT", c.ProviderTimeout},
		{"PROVIDER_RETRY_BACKOFF", c.ProviderRetryBackoff},
		{"PROVIDER_CIRCUIT_OPEN_TIMEOUT", c.ProviderCircuitOpenTimeout},
		{"NATS_ACK_WAIT", c.NATSAckWait},
		{"NATS_DEDUPE_WINDOW", c.NATSDedupeWindow},
		{"RELAY_INTERVAL", c.RelayInterval},
		{"INBOX_CLEANUP_INTERVAL", c.InboxCleanupInterval},
		{"INBOX_RETENTION", c.InboxRetention},
	}
	for _, item := range positive {
		if item.val <= 0 {
			return fmt.Errorf("%s must be > 0", item.key)
		}
	}
	if c.ProviderCacheTTL < 0 {
		return fmt.Errorf("PROVIDER_CACHE_TTL must be >= 0")
	}

	switch {
	case c.DBMaxOpenConns < 1:
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	case c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns:
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	case c.ProviderMaxRetries < 0:
		return fmt.Errorf("PROVIDER_MAX_RETRIES must be >= 0")
	case c.ProviderCircuitFailureCount < 1:
		return fmt.Errorf("PROVIDER_CIRCUIT_FAILURE_COUNT must be >= 1")
	case c.ProviderCircuitHalfOpenMaxReq < 1:
		return fmt.Errorf("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	case c.NATSMaxDeliver == 0 || c.NATSMaxDeliver < -1:
		return fmt.Errorf("NATS_MAX_DELIVER must be -1 or >= 1")
	case c.NATSMaxInFlight < 1:
		return fmt.Errorf("NATS_MAX_IN_FLIGHT must be >= 1")
	case c.RelayWorkers < 1:
		return fmt.Errorf("RELAY_WORKERS must be >= 1")
	case c.RelayChunkSize < 1:
		return fmt.Errorf("RELAY_CHUNK_SIZE must be >= 1")
	case c.RelayMaxStatesPerRun < 0:
		return fmt.Errorf("RELAY_MAX_STATES_PER_RUN must be >= 0")
	case c.EnrichmentWorkers < 1:
		return fmt.Errorf("ENRICHMENT_WORKERS must be >= 1")
	}
	return nil
}

// parser keeps the first parse error so Load can read every key in one pass.
type parser struct {
	err error
}

func (p *parser) bool(key, fallback string) bool {
	out, err := getEnvAsBool(key, fallback)
	p.keep(key, err)
	return out
}

func (p *parser) int(key string, fallback int) int {
	out, err := getEnvAsInt(key, fallback)
	p.keep(key, err)
	return out
}

func (p *parser) duration(key, fallback string) time.Duration {
	out, err := getEnvAsDuration(key, fallback)
	p.keep(key, err)
	return out
}

func (p *parser) keep(key string, err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func getEnvAsBool(key, fallback string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(getEnv(key, fallback)))
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		}
	}

	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
