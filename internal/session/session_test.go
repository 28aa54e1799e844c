package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var (
	testHashKey  = []byte("0123456789abcdef0123456789abcdef")
	testBlockKey = []byte("fedcba9876543210fedcba9876543210")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func countingRefresh(calls *int32, token string) RefreshFunc {
	return func(ctx context.Context) (Credentials, error) {
		atomic.AddInt32(calls, 1)
		return Credentials{Token: token}, nil
	}
}

func TestFileCacheRefreshesOnceWhileFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sess")
	clk := &fakeClock{t: time.Now()}
	var calls int32
	fc := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, countingRefresh(&calls, "tok-1")).WithClock(clk.Now)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		creds, err := fc.Get(ctx)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if creds.Token != "tok-1" {
			t.Fatalf("token = %q", creds.Token)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("refresh calls = %d, want 1", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
}

func TestFileCacheSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sess")
	clk := &fakeClock{t: time.Now()}
	var first int32
	fc := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, countingRefresh(&first, "tok-1")).WithClock(clk.Now)
	if _, err := fc.Get(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	// a new instance over the same file must not hit the login source
	var second int32
	fc2 := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, countingRefresh(&second, "tok-2")).WithClock(clk.Now)
	creds, err := fc2.Get(context.Background())
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}
	if creds.Token != "tok-1" {
		t.Fatalf("token = %q, want cached tok-1", creds.Token)
	}
	if n := atomic.LoadInt32(&second); n != 0 {
		t.Fatalf("refresh calls after restart = %d, want 0", n)
	}
}

func TestFileCacheExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sess")
	clk := &fakeClock{t: time.Now()}
	var calls int32
	fc := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, countingRefresh(&calls, "tok-1")).WithClock(clk.Now)

	if _, err := fc.Get(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}
	clk.Advance(49 * time.Minute)
	if _, err := fc.Get(context.Background()); err != nil {
		t.Fatalf("get before ttl: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("refreshed before ttl: calls = %d", n)
	}

	clk.Advance(2 * time.Minute)
	if _, err := fc.Get(context.Background()); err != nil {
		t.Fatalf("get after ttl: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("refresh calls = %d, want 2", n)
	}
}

func TestTamperedCacheIsAMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sess")
	if err := os.WriteFile(path, []byte("not a real cache entry"), 0o600); err != nil {
		t.Fatal(err)
	}

	clk := &fakeClock{t: time.Now()}
	var calls int32
	fc := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, countingRefresh(&calls, "tok-1")).WithClock(clk.Now)

	creds, err := fc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if creds.Token != "tok-1" || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("tampered cache was trusted: token=%q calls=%d", creds.Token, calls)
	}
}

func TestRefreshErrorPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sess")
	fc := NewFileCache(path, testHashKey, testBlockKey, 50*time.Minute, func(ctx context.Context) (Credentials, error) {
		return Credentials{}, fmt.Errorf("browser login failed")
	})
	if _, err := fc.Get(context.Background()); err == nil {
		t.Fatal("expected a refresh error")
	}
}

func TestStaticRequiresAToken(t *testing.T) {
	if _, err := (Static{}).Get(context.Background()); err == nil {
		t.Fatal("empty static token accepted")
	}
	creds, err := Static{Creds: Credentials{Token: "tok"}}.Get(context.Background())
	if err != nil || creds.Token != "tok" {
		t.Fatalf("static get = %v, %v", creds, err)
	}
}
