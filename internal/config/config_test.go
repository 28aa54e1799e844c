package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SESSION_TOKEN", "tok")
	t.Setenv("POLL_SECONDS", "")
	t.Setenv("CHECK_TIMEOUT_SECONDS", "")
	t.Setenv("FAILURE_THRESHOLD", "")
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("SUBMIT_JITTER_MS", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.CheckTimeout != 15*time.Second {
		t.Errorf("CheckTimeout = %v, want 15s", cfg.CheckTimeout)
	}
	if cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cfg.FailureThreshold)
	}
	if cfg.SessionTTL != 50*time.Minute {
		t.Errorf("SessionTTL = %v, want 50m", cfg.SessionTTL)
	}
	if cfg.SubmitJitter != 0 {
		t.Errorf("SubmitJitter = %v, want 0", cfg.SubmitJitter)
	}
}

func TestFromEnvRejectsBadDurations(t *testing.T) {
	t.Setenv("SESSION_TOKEN", "tok")
	t.Setenv("POLL_SECONDS", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatal("POLL_SECONDS=0 accepted")
	}
	t.Setenv("POLL_SECONDS", "nope")
	if _, err := FromEnv(); err == nil {
		t.Fatal("POLL_SECONDS=nope accepted")
	}
}

func TestFromEnvRequiresKeysWithoutStaticToken(t *testing.T) {
	t.Setenv("SESSION_TOKEN", "")
	t.Setenv("SESSION_HASH_KEY", "")
	t.Setenv("SESSION_BLOCK_KEY", "")
	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "SESSION_HASH_KEY") {
		t.Fatalf("want missing-keys error, got %v", err)
	}

	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	t.Setenv("SESSION_HASH_KEY", key)
	t.Setenv("SESSION_BLOCK_KEY", key)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.SessionHashKey) != 32 || len(cfg.SessionBlockKey) != 32 {
		t.Fatalf("decoded key lengths = %d/%d, want 32/32", len(cfg.SessionHashKey), len(cfg.SessionBlockKey))
	}
}

func TestWatchFileFromYAML(t *testing.T) {
	good := []byte(`
watches:
  - restaurant: rest-123
    date: "2026-12-25"
    meal: breakfast
    party_size: 4
    notify: user-1
  - restaurant: rest-456
    date: "2026-12-26"
    meal: dinner
    party_size: 2
    notify: user-2
`)
	wf, err := WatchFileFromYAML(good)
	if err != nil {
		t.Fatalf("WatchFileFromYAML: %v", err)
	}
	if len(wf.Watches) != 2 {
		t.Fatalf("watches = %d, want 2", len(wf.Watches))
	}

	q, err := wf.Watches[0].Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.EntityID != "rest-123" || q.Meal != "breakfast" || q.PartySize != 4 || q.DateString() != "2026-12-25" {
		t.Fatalf("query = %+v", q)
	}

	bad := [][]byte{
		[]byte(`watches: []`),
		[]byte(`watches: [{date: "2026-12-25", meal: lunch, party_size: 2}]`),
		[]byte(`watches: [{restaurant: r, meal: lunch, party_size: 2}]`),
		[]byte(`watches: [{restaurant: r, date: "2026-12-25", party_size: 2}]`),
		[]byte(`watches: [{restaurant: r, date: "2026-12-25", meal: lunch, party_size: 0}]`),
		[]byte(`{{not yaml`),
	}
	for i, b := range bad {
		if _, err := WatchFileFromYAML(b); err == nil {
			t.Errorf("bad watch file %d accepted", i)
		}
	}
}

func TestWatchSpecQueryRejectsBadFields(t *testing.T) {
	spec := WatchSpec{Restaurant: "r", Date: "soon", Meal: "lunch", PartySize: 2}
	if _, err := spec.Query(); err == nil {
		t.Fatal("bad date accepted")
	}
	spec = WatchSpec{Restaurant: "r", Date: "2026-12-25", Meal: "brunch", PartySize: 2}
	if _, err := spec.Query(); err == nil {
		t.Fatal("bad meal accepted")
	}
}
