package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const (
	DATE_PARSE_FORMAT = "2006-01-02"

	// Lock domain covering the combined ticket+menu cart. Any checkout in
	// flight blocks all cart writes for the owner.
	CART_LOCK_SCOPE_UNIFIED = "unified"
)

// CartLockTTL is the self-expiry horizon for checkout locks. A crashed
// orchestrator or a lost webhook can never lock an owner out for longer.
func CartLockTTL() time.Duration {
	return envMinutes("CART_LOCK_TTL_MINUTES", 30)
}

// PendingTimeout is how long a transaction may sit in pending before the
// sweeper forces it to timeout.
func PendingTimeout() time.Duration {
	return envMinutes("PENDING_TIMEOUT_MINUTES", 30)
}

func SweepInterval() time.Duration {
	return envMinutes("SWEEP_INTERVAL_MINUTES", 1)
}

func PlatformFeePercent() float64 {
	return envFloat("PLATFORM_FEE_PERCENT", 5.0)
}

func GatewayFeePercent() float64 {
	return envFloat("GATEWAY_FEE_PERCENT", 3.6)
}

// MailFrom is the receipt sender address; empty disables receipt email.
func MailFrom() string {
	return os.Getenv("MAIL_FROM")
}

func Currency() string {
	c := os.Getenv("CURRENCY")
	if c == "" {
		return "clp"
	}
	return c
}

func envMinutes(key string, def int) time.Duration {
	v := os.Getenv(key)
	atoi, err := strconv.Atoi(v)
	if err != nil || atoi <= 0 {
		atoi = def
	}
	return time.Duration(atoi) * time.Minute
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}
