package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/engine"
)

// Config holds the card store server configuration loaded from environment
// variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Board      BoardConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings. An empty Host keeps
// cards in process memory.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables
// create deduplication and event publishing.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds service token settings.
type JWTConfig struct {
	Secret   string //nolint:gosec // G117: JWT signing secret config
	TokenTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// BoardConfig describes the board served by the store.
type BoardConfig struct {
	Name           string
	Columns        []domain.ColumnSpec
	IdempotencyTTL time.Duration
}

// Statuses returns the column titles in display order.
func (b *BoardConfig) Statuses() []string {
	out := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = c.Title
	}
	return out
}

// Load reads the server configuration from environment variables.
// Defaults are safe for local development only. In production the JWT
// secret must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("KANBAN_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("KANBAN_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("KANBAN_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("KANBAN_JWT_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("KANBAN_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("KANBAN_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateRPS, err := getEnvFloat("KANBAN_SERVER_RATE_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("KANBAN_SERVER_RATE_BURST", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	idempotencyTTL, err := getEnvDuration("KANBAN_IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("KANBAN_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	columns, err := loadColumns()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("KANBAN_DB_HOST", ""),
			Port:     dbPort,
			User:     getEnv("KANBAN_DB_USER", "kanban"),
			Password: getEnv("KANBAN_DB_PASSWORD", ""),
			DBName:   getEnv("KANBAN_DB_NAME", "kanban_dev"),
			SSLMode:  getEnv("KANBAN_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("KANBAN_REDIS_ADDR", ""),
			Password: getEnv("KANBAN_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:   getEnv("KANBAN_JWT_SECRET", ""),
			TokenTTL: tokenTTL,
		},
		Server: ServerConfig{
			Addr:           getEnv("KANBAN_SERVER_ADDR", ":8080"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("KANBAN_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
		},
		Board: BoardConfig{
			Name:           getEnv("KANBAN_BOARD", "default"),
			Columns:        columns,
			IdempotencyTTL: idempotencyTTL,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("KANBAN_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("KANBAN_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.Host != "" && c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("KANBAN_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("KANBAN_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("KANBAN_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.TokenTTL <= 0 {
		return fmt.Errorf("KANBAN_JWT_TOKEN_TTL must be positive, got %s", c.JWT.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("KANBAN_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("KANBAN_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("KANBAN_SERVER_RATE_LIMIT must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("KANBAN_SERVER_RATE_BURST must be >= 1, got %d", c.Server.RateLimitBurst)
	}
	if c.Board.IdempotencyTTL <= 0 {
		return fmt.Errorf("KANBAN_IDEMPOTENCY_TTL must be positive, got %s", c.Board.IdempotencyTTL)
	}
	if strings.TrimSpace(c.Board.Name) == "" {
		return errors.New("KANBAN_BOARD must not be blank")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Transports understood by ClientConfig.Transport.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// ClientConfig holds the terminal client configuration.
type ClientConfig struct {
	RemoteURL string
	Transport string
	ClientID  string
	// Token is sent as the bearer credential. When empty and JWTSecret is
	// set, the client signs its own token.
	Token          string //nolint:gosec // G117: bearer token config
	JWTSecret      string //nolint:gosec // G117: JWT signing secret config
	RPS            float64
	Burst          int
	OverlapPolicy  engine.Policy
	RequestTimeout time.Duration
	Columns        []domain.ColumnSpec
}

// LoadClient reads the client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	rps, err := getEnvFloat("KANBAN_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.LoadClient: %w", err)
	}

	burst, err := getEnvInt("KANBAN_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("config.LoadClient: %w", err)
	}

	timeout, err := getEnvDuration("KANBAN_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.LoadClient: %w", err)
	}

	policy, err := engine.ParsePolicy(getEnv("KANBAN_OVERLAP_POLICY", "reject"))
	if err != nil {
		return nil, fmt.Errorf("config.LoadClient: KANBAN_OVERLAP_POLICY: %w", err)
	}

	columns, err := loadColumns()
	if err != nil {
		return nil, fmt.Errorf("config.LoadClient: %w", err)
	}

	cfg := &ClientConfig{
		RemoteURL:      getEnv("KANBAN_REMOTE_URL", "http://localhost:8080"),
		Transport:      strings.ToLower(getEnv("KANBAN_TRANSPORT", TransportHTTP)),
		ClientID:       getEnv("KANBAN_CLIENT_ID", "kanban-cli"),
		Token:          getEnv("KANBAN_TOKEN", ""),
		JWTSecret:      getEnv("KANBAN_JWT_SECRET", ""),
		RPS:            rps,
		Burst:          burst,
		OverlapPolicy:  policy,
		RequestTimeout: timeout,
		Columns:        columns,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.LoadClient: %w", err)
	}

	return cfg, nil
}

func (c *ClientConfig) validate() error {
	u, err := url.Parse(c.RemoteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("KANBAN_REMOTE_URL must be an http(s) URL, got %q", c.RemoteURL)
	}
	if c.Transport != TransportHTTP && c.Transport != TransportWS {
		return fmt.Errorf("KANBAN_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportWS, c.Transport)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("KANBAN_CLIENT_ID must not be blank")
	}
	if c.RPS < 0 {
		return fmt.Errorf("KANBAN_RPS must be >= 0, got %g", c.RPS)
	}
	if c.Burst < 1 {
		return fmt.Errorf("KANBAN_BURST must be >= 1, got %d", c.Burst)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("KANBAN_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// RPCURL returns the websocket endpoint derived from RemoteURL.
func (c *ClientConfig) RPCURL() string {
	u, err := url.Parse(c.RemoteURL)
	if err != nil {
		return c.RemoteURL
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/rpc"
	return u.String()
}

// ParseColumns turns column titles into specs with ids column-1, column-2 and
// so on. Titles must be non-blank and unique.
func ParseColumns(titles []string) ([]domain.ColumnSpec, error) {
	if len(titles) == 0 {
		return nil, fmt.Errorf("no columns: %w", domain.ErrValidation)
	}

	seen := make(map[string]bool, len(titles))
	specs := make([]domain.ColumnSpec, 0, len(titles))
	for i, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, fmt.Errorf("column %d has a blank title: %w", i+1, domain.ErrValidation)
		}
		if seen[title] {
			return nil, fmt.Errorf("duplicate column %q: %w", title, domain.ErrValidation)
		}
		seen[title] = true
		specs = append(specs, domain.ColumnSpec{ID: "column-" + strconv.Itoa(i+1), Title: title})
	}
	return specs, nil
}

func loadColumns() ([]domain.ColumnSpec, error) {
	v := os.Getenv("KANBAN_COLUMNS")
	if v == "" {
		return domain.DefaultColumns(), nil
	}
	specs, err := ParseColumns(strings.Split(v, ","))
	if err != nil {
		return nil, fmt.Errorf("KANBAN_COLUMNS: %w", err)
	}
	return specs, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
