package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SiteRoot string // root used for booking deep links
	APIBase  string // base URL of the availability endpoint

	SessionToken     string // static token; when set, the disk cache is skipped
	LoginCmd         string // external login command printing a token on stdout
	SessionCachePath string
	SessionTTL       time.Duration
	SessionHashKey   []byte
	SessionBlockKey  []byte

	// watcher
	PollInterval     time.Duration
	CheckTimeout     time.Duration
	FailureThreshold int
	SubmitJitter     time.Duration
}

func FromEnv() (Config, error) {
	cfg := Config{
		SiteRoot:         getenv("SITE_ROOT", "https://disneyworld.disney.go.com"),
		APIBase:          getenv("API_BASE", "https://disneyworld.disney.go.com"),
		SessionToken:     strings.TrimSpace(os.Getenv("SESSION_TOKEN")),
		LoginCmd:         strings.TrimSpace(os.Getenv("LOGIN_CMD")),
		SessionCachePath: getenv("SESSION_CACHE_PATH", filepath.Join(os.TempDir(), "dine-alert-session")),
	}

	pollSec, err := strconv.Atoi(getenv("POLL_SECONDS", "300"))
	if err != nil || pollSec < 1 {
		return Config{}, fmt.Errorf("invalid POLL_SECONDS")
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	timeoutSec, err := strconv.Atoi(getenv("CHECK_TIMEOUT_SECONDS", "15"))
	if err != nil || timeoutSec < 1 {
		return Config{}, fmt.Errorf("invalid CHECK_TIMEOUT_SECONDS")
	}
	cfg.CheckTimeout = time.Duration(timeoutSec) * time.Second

	threshold, err := strconv.Atoi(getenv("FAILURE_THRESHOLD", "5"))
	if err != nil || threshold < 1 {
		return Config{}, fmt.Errorf("invalid FAILURE_THRESHOLD")
	}
	cfg.FailureThreshold = threshold

	jitterMS, err := strconv.Atoi(getenv("SUBMIT_JITTER_MS", "0"))
	if err != nil || jitterMS < 0 {
		return Config{}, fmt.Errorf("invalid SUBMIT_JITTER_MS")
	}
	cfg.SubmitJitter = time.Duration(jitterMS) * time.Millisecond

	ttlMin, err := strconv.Atoi(getenv("SESSION_TTL_MINUTES", "50"))
	if err != nil || ttlMin < 1 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL_MINUTES")
	}
	cfg.SessionTTL = time.Duration(ttlMin) * time.Minute

	// cache keys are only needed when the disk-cached login flow is used
	if cfg.SessionToken == "" {
		hashKey := os.Getenv("SESSION_HASH_KEY")
		blockKey := os.Getenv("SESSION_BLOCK_KEY")
		if hashKey == "" || blockKey == "" {
			return Config{}, fmt.Errorf("SESSION_HASH_KEY and SESSION_BLOCK_KEY are required when SESSION_TOKEN is unset (generate with `dinewatch keys`)")
		}
		if cfg.SessionHashKey, err = decodeB64(hashKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_HASH_KEY: %w", err)
		}
		if cfg.SessionBlockKey, err = decodeB64(blockKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_BLOCK_KEY: %w", err)
		}
	}

	return cfg, nil
}

func decodeB64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
