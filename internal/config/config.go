package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Platform PlatformConfig
	Routing  RoutingConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// PlatformConfig identifies the telephony/work-distribution platform account
// and the fixed platform resources this service routes against.
type PlatformConfig struct {
	AccountSID   string
	AuthToken    string
	WorkspaceSID string

	// VoicemailQueueSID marks the queue whose entry means "stop routing,
	// go record a message".
	VoicemailQueueSID string

	// VoicemailSinkContact is the reserved contact identity that routes a
	// reservation straight to voicemail instead of ringing anyone.
	VoicemailSinkContact string

	// PostWorkActivitySID is the activity a worker is moved to when their
	// bridged call ends (embedded in the dequeue instruction).
	PostWorkActivitySID string

	// ActivitySIDs maps presence activities to platform activity SIDs.
	AvailableActivitySID   string
	UnavailableActivitySID string
	OfflineActivitySID     string
}

// RoutingConfig carries the knobs of the call-routing handlers themselves.
type RoutingConfig struct {
	// PublicBaseURL is the externally reachable base URL the platform was
	// given for every callback. Signature verification recomputes against
	// this URL, not the proxy-observed one.
	PublicBaseURL string

	CallerID string

	RingTimeoutSeconds   int
	VoicemailMaxSeconds  int
	WebhookAllowUnsigned bool
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")

	c.Platform.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Platform.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Platform.WorkspaceSID = strings.TrimSpace(os.Getenv("TASKROUTER_WORKSPACE_SID"))
	c.Platform.VoicemailQueueSID = strings.TrimSpace(os.Getenv("VOICEMAIL_QUEUE_SID"))
	c.Platform.VoicemailSinkContact = strings.TrimSpace(os.Getenv("VOICEMAIL_SINK_CONTACT"))
	c.Platform.PostWorkActivitySID = strings.TrimSpace(os.Getenv("POST_WORK_ACTIVITY_SID"))
	c.Platform.AvailableActivitySID = strings.TrimSpace(os.Getenv("AVAILABLE_ACTIVITY_SID"))
	c.Platform.UnavailableActivitySID = strings.TrimSpace(os.Getenv("UNAVAILABLE_ACTIVITY_SID"))
	c.Platform.OfflineActivitySID = strings.TrimSpace(os.Getenv("OFFLINE_ACTIVITY_SID"))

	c.Routing.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")
	c.Routing.CallerID = strings.TrimSpace(os.Getenv("CALLER_ID"))
	c.Routing.RingTimeoutSeconds = optionalInt("RING_TIMEOUT_SECONDS")
	c.Routing.VoicemailMaxSeconds = optionalInt("VOICEMAIL_MAX_SECONDS")
	c.Routing.WebhookAllowUnsigned = optionalBool("WEBHOOK_ALLOW_UNSIGNED")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}

	if c.Platform.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Platform.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Platform.WorkspaceSID == "" {
		errs = append(errs, errors.New("TASKROUTER_WORKSPACE_SID is required"))
	}
	if c.Platform.VoicemailQueueSID == "" {
		errs = append(errs, errors.New("VOICEMAIL_QUEUE_SID is required"))
	}

	if c.Routing.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	} else if !strings.HasPrefix(c.Routing.PublicBaseURL, "https://") && !strings.HasPrefix(c.Routing.PublicBaseURL, "http://") {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.Routing.PublicBaseURL))
	}
	if c.Routing.CallerID == "" {
		errs = append(errs, errors.New("CALLER_ID is required"))
	}
	if c.Routing.RingTimeoutSeconds <= 0 {
		c.Routing.RingTimeoutSeconds = 20
	}
	if c.Routing.VoicemailMaxSeconds <= 0 {
		c.Routing.VoicemailMaxSeconds = 120
	}
	if c.Routing.WebhookAllowUnsigned && c.IsProduction() {
		errs = append(errs, errors.New("WEBHOOK_ALLOW_UNSIGNED must not be set in production"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optionalBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
