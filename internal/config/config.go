package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and connection settings are required;
// tunables fall back to defaults.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    RunMigrations   bool          // apply embedded migrations on startup
    JWTSecret       string        // secret used to sign session tokens
    SessionTTL      time.Duration // validity window of a session token
    CookieName      string        // name of the session cookie
    BcryptCost      int           // bcrypt cost for password hashing
    ResetStore      string        // "redis", "memory" or empty for auto
    ResetCodeTTL    time.Duration // lifetime of a password reset code
    ResetMaxTries   int           // wrong guesses allowed per reset code (0 = unlimited)
    AMQPURL         string        // RabbitMQ URL; empty disables event publishing
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; real environment variables win over it.  Required variables are
// enforced by must() and missing values cause the program to exit.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
    return Config{
        Env:           must("APP_ENV"),
        Port:          envStr("APP_PORT", "8080"),
        DBUser:        must("DB_USER"),
        DBPass:        os.Getenv("DB_PASS"),
        DBHost:        must("DB_HOST"),
        DBPort:        envStr("DB_PORT", "3306"),
        DBName:        must("DB_NAME"),
        RunMigrations: envBool("DB_MIGRATE", true),
        JWTSecret:     must("JWT_SECRET"),
        SessionTTL:    time.Duration(envInt("SESSION_TTL_HOURS", 24)) * time.Hour,
        CookieName:    envStr("SESSION_COOKIE", "token"),
        BcryptCost:    mustInt("BCRYPT_COST"),
        ResetStore:    os.Getenv("RESET_STORE"),
        ResetCodeTTL:  envDur("RESET_CODE_TTL", 10*time.Minute),
        ResetMaxTries: envInt("RESET_MAX_ATTEMPTS", 5),
        AMQPURL:       amqpURL(),
    }
}

// Production reports whether the service runs with production settings
// (JSON logs, Secure cookies).
func (c Config) Production() bool {
    return c.Env == "prod" || c.Env == "production"
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
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func amqpURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}
