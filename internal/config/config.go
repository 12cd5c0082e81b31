package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env                string // application environment (e.g. "dev", "prod")
    Port               string // HTTP port to listen on
    DBUser             string // database username
    DBPass             string // database password (optional)
    DBHost             string // database host address
    DBPort             string // database port number
    DBName             string // database name
    EncryptionKey      string // server-held secret for the credential MAC layer and signed cookies
    BcryptCost         int    // bcrypt cost for password hashing
    SessionTTLDays     int    // session lifetime in days for a normal login
    RememberTTLDays    int    // session lifetime in days with remember-me
    LoginMaxAttempts   int    // failed logins allowed per email+IP inside the window
    LoginWindowMin     int    // rate-limit window in minutes
    MigrationsToken    string // shared token accepted by the migrations runner (optional)
    CleanupIntervalMin int    // minutes between expired-session sweeps
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
//
// ENCRYPTION_KEY must be stable across restarts: rotating it makes every
// stored credential's MAC layer unverifiable until users log in again
// through a rehash migration.
func Load() Config {
    return Config{
        Env:                must("APP_ENV"),              // environment (dev/test/prod)
        Port:               must("APP_PORT"),             // port to bind the HTTP server
        DBUser:             must("DB_USER"),              // database user
        DBPass:             os.Getenv("DB_PASS"),         // database password (empty allowed)
        DBHost:             must("DB_HOST"),              // database host
        DBPort:             must("DB_PORT"),              // database port
        DBName:             must("DB_NAME"),              // database name
        EncryptionKey:      must("ENCRYPTION_KEY"),       // MAC/signing secret
        BcryptCost:         mustInt("BCRYPT_COST"),       // bcrypt cost factor
        SessionTTLDays:     envInt("SESSION_TTL_DAYS", 1),
        RememberTTLDays:    envInt("SESSION_REMEMBER_TTL_DAYS", 30),
        LoginMaxAttempts:   envInt("LOGIN_MAX_ATTEMPTS", 5),
        LoginWindowMin:     envInt("LOGIN_WINDOW_MIN", 15),
        MigrationsToken:    os.Getenv("MIGRATIONS_TOKEN"), // empty disables the token path
        CleanupIntervalMin: envInt("SESSION_CLEANUP_INTERVAL_MIN", 60),
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
