package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// OAuthProvider holds the client credentials and redirect URL for one
// external identity provider (google, facebook, microsoft, apple).
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign access tokens
	RefreshSecret  string // separate secret used to sign refresh tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	LockoutMax     int    // failed login attempts before lockout
	LockoutMin     int    // lockout duration in minutes
	FrontendURL    string // base URL used to build verification/reset links
	RabbitURL      string // AMQP connection string for outbound mail

	Google    OAuthProvider
	Facebook  OAuthProvider
	Microsoft OAuthProvider
	Apple     OAuthProvider
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The refresh token
// secret is required: tokens signed under an empty secret would be
// forgeable, so its absence is a startup error rather than a runtime one.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		RefreshSecret:  must("REFRESH_TOKEN_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		LockoutMax:     envIntDefault("LOGIN_LOCKOUT_MAX_ATTEMPTS", 5),
		LockoutMin:     envIntDefault("LOGIN_LOCKOUT_MINUTES", 15),
		FrontendURL:    must("FRONTEND_URL"),
		RabbitURL:      os.Getenv("RABBITMQ_URL"), // empty -> mail pipeline disabled

		Google:    provider("GOOGLE"),
		Facebook:  provider("FACEBOOK"),
		Microsoft: provider("MICROSOFT"),
		Apple:     provider("APPLE"),
	}
}

// provider reads the client id/secret/redirect triple for one OAuth
// provider.  Providers are optional: an empty ClientID disables the
// provider's routes.
func provider(prefix string) OAuthProvider {
	return OAuthProvider{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		RedirectURL:  os.Getenv(prefix + "_REDIRECT_URL"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envIntDefault reads an optional integer variable, falling back to def when
// unset or malformed.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
