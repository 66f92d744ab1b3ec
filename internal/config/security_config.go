package config

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type SecurityConfig interface {
	GetMaxFailedAttempts() int
	GetLockoutWindow() time.Duration
	GetIdleTimeout() time.Duration
	GetAbsoluteMaxAge() time.Duration
	GetBcryptCost() int
	GetDummyDigest() string
	GetMaintenanceInterval() time.Duration
	GetLoginRateLimit() (perSecond float64, burst int)
	GetSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetMaxFailedAttempts is the lockout threshold: this many failures within
// the lockout window locks the account.
func (Security) GetMaxFailedAttempts() int {
	return getEnvInt("MAX_FAILED_ATTEMPTS", 5)
}

// GetLockoutWindow is the trailing interval over which failures count, and
// also how long a lock lasts from its oldest offending attempt.
func (Security) GetLockoutWindow() time.Duration {
	return getEnvDuration("LOCKOUT_WINDOW", 15*time.Minute)
}

func (Security) GetIdleTimeout() time.Duration {
	return getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
}

// GetAbsoluteMaxAge is the hard session ceiling regardless of activity.
func (Security) GetAbsoluteMaxAge() time.Duration {
	return getEnvDuration("SESSION_MAX_AGE", 24*time.Hour)
}

// GetBcryptCost keeps a single verification in the tens-of-milliseconds
// range. Callers must not wrap login in a sub-second deadline.
func (Security) GetBcryptCost() int {
	return getEnvInt("BCRYPT_COST", bcrypt.DefaultCost+2)
}

// GetDummyDigest optionally pins the digest compared for unknown usernames.
// Empty means the verifier generates one at startup at GetBcryptCost.
func (Security) GetDummyDigest() string {
	return GetEnv("DUMMY_DIGEST", "")
}

func (Security) GetMaintenanceInterval() time.Duration {
	return getEnvDuration("MAINTENANCE_INTERVAL", 6*time.Hour)
}

// GetLoginRateLimit bounds login volume per network origin; the per-account
// lockout bounds attempts per identity. Both are enforced.
func (Security) GetLoginRateLimit() (float64, int) {
	perSecond := getEnvFloat("LOGIN_RATE_PER_SECOND", 1)
	burst := getEnvInt("LOGIN_RATE_BURST", 5)
	return perSecond, burst
}

func (s Security) GetSecureCookies() bool {
	return EnvVars{}.GetEnv() != "DEV"
}

func getEnvInt(envVar string, defaultValue int) int {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(envVar string, defaultValue float64) float64 {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
