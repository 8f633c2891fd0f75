package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// MetricsAddr is the internal listener for /metrics. Empty disables it.
	MetricsAddr  string
}

type PostgresConfig struct {
	DSN              string
	MaxOpen          int
	MaxIdle          int
	ConnMaxLifetime  time.Duration
	// StatementTimeout is applied per connection; zero leaves the server default.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketUploads string
	UseSSL        bool
	Region        string
	MaxUploadSize int64
}

// AuthConfig selects and configures the credential store behind the dashboard.
type AuthConfig struct {
	Provider        string // "gotrue" or "local"
	BaseURL         string
	AnonKey         string
	JWTSecret       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	ExchangeTimeout time.Duration
	AdminCacheTTL   time.Duration
	MaxSessions     int
}

type CookieConfig struct {
	Secure        bool
	AccessToken   string
	RefreshToken  string
	AdminSession  string
	SessionExpiry string
}

type RouteSetConfig struct {
	AuthPassthrough         []string
	Protected               []string
	RedirectIfAuthenticated []string
	Admin                   []string
}

type RoutesConfig struct {
	Pages RouteSetConfig
	API   RouteSetConfig
}

type QueueConfig struct {
	Stream string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Auth             AuthConfig
	Cookies          CookieConfig
	Routes           RoutesConfig
	Queue            QueueConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("RENTDASH")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Auth.Provider {
	case "gotrue":
		if c.Auth.BaseURL == "" {
			return fmt.Errorf("auth.baseurl is required for the gotrue provider")
		}
	case "local":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwtsecret is required for the local provider")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}
	if c.Auth.ExchangeTimeout <= 0 {
		return fmt.Errorf("auth.exchangetimeout must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.metricsaddr", "127.0.0.1:9090")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.statementtimeout", "5s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketuploads", "rentdash-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxuploadsize", 10<<20)

	v.SetDefault("auth.provider", "local")
	v.SetDefault("auth.accessttl", "1h")
	v.SetDefault("auth.refreshttl", "720h") // 30 days
	v.SetDefault("auth.exchangetimeout", "5s")
	v.SetDefault("auth.admincachettl", "5m")
	v.SetDefault("auth.maxsessions", 10)

	v.SetDefault("cookies.secure", true)
	v.SetDefault("cookies.accesstoken", "access-token")
	v.SetDefault("cookies.refreshtoken", "refresh-token")
	v.SetDefault("cookies.adminsession", "admin-session")
	v.SetDefault("cookies.sessionexpiry", "session-expiry")

	v.SetDefault("routes.pages.authpassthrough", []string{"/api/auth/login(|/)", "/api/auth/logout(|/)"})
	v.SetDefault("routes.pages.protected", []string{
		"/dashboard(|/)",
		"/orders(|/)",
		"/users(|/)",
		"/products(|/)",
		"/payments-table(|/)",
	})
	v.SetDefault("routes.pages.redirectifauthenticated", []string{"/"})
	v.SetDefault("routes.pages.admin", []string{})

	v.SetDefault("routes.api.authpassthrough", []string{"/api/auth/login(|/)", "/api/auth/logout(|/)"})
	v.SetDefault("routes.api.protected", []string{
		"/api/guestbook(|/**)",
		"/api/admins(|/**)",
		"/api/uploads(|/)",
		"/api/me(|/)",
	})
	v.SetDefault("routes.api.redirectifauthenticated", []string{})
	v.SetDefault("routes.api.admin", []string{"/api/admins(|/**)", "/api/uploads(|/)"})

	v.SetDefault("queue.stream", "dashboard:tasks")
}
