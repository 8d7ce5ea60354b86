package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock(l *Limiter, at time.Time) *time.Time {
	now := at
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_Allow(t *testing.T) {
	config := &Config{
		Enabled:      true,
		DefaultRPS:   1,
		DefaultBurst: 10,
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()
	fixedClock(limiter, time.Unix(1_700_000_000, 0))

	clientID := "127.0.0.1"
	endpoint := "/test"
	method := "GET"

	// Should allow requests up to the burst
	for i := 0; i < 10; i++ {
		allowed, rateInfo := limiter.Allow(clientID, endpoint, method)
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", rateInfo.Limit)
		}
		if rateInfo.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, rateInfo.Remaining)
		}
	}

	// 11th request should be denied
	allowed, rateInfo := limiter.Allow(clientID, endpoint, method)
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if rateInfo.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", rateInfo.Remaining)
	}
	if rateInfo.RetryAfter != time.Second {
		t.Errorf("Expected retry after 1s, got %v", rateInfo.RetryAfter)
	}
	if !rateInfo.ResetTime.After(time.Unix(1_700_000_000, 0)) {
		t.Error("Reset time should be in the future")
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultRPS: 2, DefaultBurst: 2})
	defer limiter.Stop()
	now := fixedClock(limiter, time.Unix(1_700_000_000, 0))

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c", "/x", "GET"); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/x", "GET"); allowed {
		t.Fatal("Expected request to be denied with an empty bucket")
	}

	*now = now.Add(500 * time.Millisecond)
	if allowed, _ := limiter.Allow("c", "/x", "GET"); !allowed {
		t.Error("Expected request to be allowed after refill")
	}
	if allowed, _ := limiter.Allow("c", "/x", "GET"); allowed {
		t.Error("Expected request to be denied after consuming refilled token")
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	config := &Config{
		Enabled:      true,
		DefaultRPS:   1,
		DefaultBurst: 1,
		Whitelist:    map[string]bool{"127.0.0.1": true},
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/test", "GET")
		if !allowed {
			t.Errorf("Expected whitelisted request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 for whitelisted, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	config := &Config{
		Enabled:      true,
		DefaultRPS:   1000,
		DefaultBurst: 1000,
		Blacklist:    map[string]bool{"192.168.1.1": true},
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	allowed, _ := limiter.Allow("192.168.1.1", "/test", "GET")
	if allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(NewConfig(0, 0))
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/jobs", "POST")
		if !allowed {
			t.Errorf("Expected request %d to be allowed when disabled", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 when disabled, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(NewConfig(1, 3))
	defer limiter.Stop()
	fixedClock(limiter, time.Unix(1_700_000_000, 0))

	clientID := "127.0.0.1"

	for i := 0; i < 3; i++ {
		allowed, rateInfo := limiter.Allow(clientID, "/jobs", "POST")
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 3 {
			t.Errorf("Expected limit 3, got %d", rateInfo.Limit)
		}
	}

	allowed, _ := limiter.Allow(clientID, "/jobs", "POST")
	if allowed {
		t.Error("Expected 4th submission to be denied")
	}

	// Reads of the same path use the default
	allowed, rateInfo := limiter.Allow(clientID, "/jobs", "GET")
	if !allowed {
		t.Error("Expected listing to be allowed")
	}
	if rateInfo.Limit != 100 {
		t.Errorf("Expected default limit 100, got %d", rateInfo.Limit)
	}

	// Another client has its own bucket
	if allowed, _ := limiter.Allow("10.0.0.2", "/jobs", "POST"); !allowed {
		t.Error("Expected other client to be allowed")
	}
}

func TestLimiter_UnlimitedProbes(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultRPS: 1, DefaultBurst: 1})
	defer limiter.Stop()

	for _, path := range []string{"/health", "/metrics"} {
		for i := 0; i < 20; i++ {
			if allowed, _ := limiter.Allow("127.0.0.1", path, "GET"); !allowed {
				t.Fatalf("Expected %s request %d to be allowed", path, i+1)
			}
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	config := &Config{
		Enabled:      true,
		DefaultRPS:   0.001,
		DefaultBurst: 100,
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	var wg sync.WaitGroup
	allowedCount := 0
	var mu sync.Mutex

	// Make 200 concurrent requests (should only allow 100)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := limiter.Allow("127.0.0.1", "/test", "GET")
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowedCount)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	config := &Config{
		Enabled:      true,
		DefaultRPS:   10,
		DefaultBurst: 10,
		IdleTTL:      time.Minute,
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()
	now := fixedClock(limiter, time.Unix(1_700_000_000, 0))

	for i := 0; i < 10; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/test", "GET")
	}
	if limiter.Len() != 10 {
		t.Fatalf("Expected 10 buckets, got %d", limiter.Len())
	}

	*now = now.Add(45 * time.Second)
	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/test", "GET")
	}

	*now = now.Add(30 * time.Second)
	limiter.cleanupBuckets()

	if limiter.Len() != 5 {
		t.Errorf("Expected 5 recently used buckets to survive, got %d", limiter.Len())
	}
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, rateInfo := limiter.Allow("127.0.0.1", "/jobs", "POST")
	if !allowed {
		t.Error("Expected request to be allowed with default config")
	}
	if rateInfo.Limit != 10 {
		t.Errorf("Expected submission burst 10, got %d", rateInfo.Limit)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewLimiter(NewConfig(1, 1))
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(2, 4)
	tests := []struct {
		path, method string
		wantRPS      float64
		wantNil      bool
	}{
		{"/jobs", "POST", 2, false},
		{"/jobs", "GET", 0, true},
		{"/validate", "POST", 10, false},
		{"/validate/fix", "POST", 10, false},
		{"/tests/generate", "POST", 10, false},
		{"/health", "GET", 0, false},
		{"/history", "GET", 0, true},
	}
	for _, tt := range tests {
		got := MatchEndpoint(tt.path, tt.method, configs)
		if tt.wantNil {
			if got != nil {
				t.Errorf("%s %s: expected no match, got %+v", tt.method, tt.path, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("%s %s: expected a match", tt.method, tt.path)
			continue
		}
		if got.RPS != tt.wantRPS {
			t.Errorf("%s %s: expected rps %v, got %v", tt.method, tt.path, tt.wantRPS, got.RPS)
		}
	}
}
