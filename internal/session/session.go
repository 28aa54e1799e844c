package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

// Credentials is a ready-to-use bearer token for the reservation site.
type Credentials struct {
	Token string
}

// Provider supplies a valid credential. Implementations own their own
// refresh policy; callers must not cache the result beyond one request.
type Provider interface {
	Get(ctx context.Context) (Credentials, error)
}

// RefreshFunc adapts an external login routine into a refresh source for
// FileCache. The login flow itself (browser automation or otherwise)
// lives outside this package.
type RefreshFunc func(ctx context.Context) (Credentials, error)

// CommandRefresh runs a shell command and reads a token from its stdout.
func CommandRefresh(command string) RefreshFunc {
	return func(ctx context.Context) (Credentials, error) {
		out, err := exec.CommandContext(ctx, "/bin/sh", "-c", command).Output()
		if err != nil {
			return Credentials{}, fmt.Errorf("login command: %w", err)
		}
		token := strings.TrimSpace(string(out))
		if token == "" {
			return Credentials{}, fmt.Errorf("login command produced an empty token")
		}
		return Credentials{Token: token}, nil
	}
}

// Static always returns the same credential. Useful for tokens injected
// through the environment.
type Static struct {
	Creds Credentials
}

func (s Static) Get(ctx context.Context) (Credentials, error) {
	if s.Creds.Token == "" {
		return Credentials{}, fmt.Errorf("no session token configured")
	}
	return s.Creds, nil
}

const cacheName = "dine_session"

// DefaultTTL is how long a refreshed credential is considered valid.
const DefaultTTL = 50 * time.Minute

// FileCache caches the last refreshed credential on disk so restarts and
// repeated polls do not re-run the login flow. The artifact is encoded
// with securecookie (HMAC + AES), so a tampered or foreign file decodes
// as a miss.
type FileCache struct {
	sc      *securecookie.SecureCookie
	path    string
	ttl     time.Duration
	refresh RefreshFunc
	now     func() time.Time

	mu        sync.Mutex
	cached    Credentials
	fetchedAt time.Time
}

func NewFileCache(path string, hashKey, blockKey []byte, ttl time.Duration, refresh RefreshFunc) *FileCache {
	sc := securecookie.New(hashKey, blockKey)
	// staleness is enforced by our own clock, not securecookie's
	sc.MaxAge(0)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileCache{sc: sc, path: path, ttl: ttl, refresh: refresh, now: time.Now}
}

// WithClock overrides the staleness clock.
func (f *FileCache) WithClock(now func() time.Time) *FileCache {
	f.now = now
	return f
}

type cacheEntry struct {
	Token     string
	FetchedAt int64 // unix seconds
}

// Get returns a fresh credential, refreshing through the login source
// when the in-memory and on-disk copies are stale or unreadable.
func (f *FileCache) Get(ctx context.Context) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached.Token != "" && f.now().Sub(f.fetchedAt) < f.ttl {
		return f.cached, nil
	}
	if e, ok := f.load(); ok {
		fetched := time.Unix(e.FetchedAt, 0)
		if f.now().Sub(fetched) < f.ttl {
			f.cached = Credentials{Token: e.Token}
			f.fetchedAt = fetched
			return f.cached, nil
		}
	}
	if f.refresh == nil {
		return Credentials{}, fmt.Errorf("session cache is stale and no refresh source is configured")
	}
	creds, err := f.refresh(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("refresh session: %w", err)
	}
	f.cached = creds
	f.fetchedAt = f.now()
	f.store(cacheEntry{Token: creds.Token, FetchedAt: f.fetchedAt.Unix()})
	return creds, nil
}

func (f *FileCache) load() (cacheEntry, bool) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return cacheEntry{}, false
	}
	var e cacheEntry
	if err := f.sc.Decode(cacheName, strings.TrimSpace(string(b)), &e); err != nil {
		return cacheEntry{}, false
	}
	return e, true
}

func (f *FileCache) store(e cacheEntry) {
	encoded, err := f.sc.Encode(cacheName, e)
	if err != nil {
		slog.Warn("session cache encode failed", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		slog.Warn("session cache dir", "err", err)
		return
	}
	if err := os.WriteFile(f.path, []byte(encoded), 0o600); err != nil {
		slog.Warn("session cache write failed", "err", err)
	}
}
