package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keeper actions throttled on their own budget
const (
	ActionKill     = "kill"
	ActionReinvest = "reinvest"
	ActionPrice    = "price"
	ActionAdvance  = "advance"
	// ActionWrite covers POST routes without a dedicated budget
	ActionWrite = "write"
)

// RateLimiter throttles clients by IP. Every request draws from the IP bucket;
// keeper actions also draw from a per-action bucket so a killer bot cannot starve
// reinvests or block production.
type RateLimiter struct {
	config *RateLimitConfig

	buckets   map[string]*Bucket
	bucketsMu sync.RWMutex

	cleanupTicker *time.Ticker
	stopCh        chan struct{}
}

// ActionLimit is the token bucket of one keeper action
type ActionLimit struct {
	PerSecond float64
	Burst     int
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	IPRequestsPerSecond int
	IPBurst             int
	// How long a bucket stays blocked after running dry
	IPBlockDuration time.Duration

	// Fallback budget for POST routes missing from ActionLimits
	WritesPerSecond int
	WriteBurst      int
	ActionLimits    map[string]ActionLimit

	CleanupInterval time.Duration
	// Time before an unused bucket is removed
	BucketTTL time.Duration
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             200,
		IPBlockDuration:     time.Minute,

		WritesPerSecond: 5,
		WriteBurst:      10,
		ActionLimits: map[string]ActionLimit{
			ActionKill:     {PerSecond: 2, Burst: 5},
			ActionReinvest: {PerSecond: 1, Burst: 3},
			ActionPrice:    {PerSecond: 5, Burst: 10},
			ActionAdvance:  {PerSecond: 1, Burst: 5},
		},

		CleanupInterval: 5 * time.Minute,
		BucketTTL:       time.Hour,
	}
}

// Bucket is one client's limiter plus its block window
type Bucket struct {
	limiter      *rate.Limiter
	lastSeen     time.Time
	blockedUntil time.Time
	mu           sync.Mutex
}

// RateLimitInfo describes the outcome of one check
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Action     string `json:"action"`
	Blocked    bool   `json:"blocked,omitempty"`
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:        config,
		buckets:       make(map[string]*Bucket),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		stopCh:        make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup loop
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes buckets idle for longer than BucketTTL
func (rl *RateLimiter) cleanup() {
	threshold := time.Now().Add(-rl.config.BucketTTL)

	rl.bucketsMu.Lock()
	defer rl.bucketsMu.Unlock()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		if bucket.lastSeen.Before(threshold) {
			delete(rl.buckets, key)
		}
		bucket.mu.Unlock()
	}
}

func (rl *RateLimiter) getBucket(key string, limit rate.Limit, burst int) *Bucket {
	rl.bucketsMu.RLock()
	bucket, ok := rl.buckets[key]
	rl.bucketsMu.RUnlock()
	if ok {
		return bucket
	}

	rl.bucketsMu.Lock()
	defer rl.bucketsMu.Unlock()
	if bucket, ok := rl.buckets[key]; ok {
		return bucket
	}
	bucket = &Bucket{
		limiter:  rate.NewLimiter(limit, burst),
		lastSeen: time.Now(),
	}
	rl.buckets[key] = bucket
	return bucket
}

// AllowIP checks the per-client request budget
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	bucket := rl.getBucket("ip|"+ip, rate.Limit(rl.config.IPRequestsPerSecond), rl.config.IPBurst)
	return rl.tryConsume(bucket, "request")
}

// AllowAction checks the client's budget for one keeper action
func (rl *RateLimiter) AllowAction(ip, action string) (bool, *RateLimitInfo) {
	limit, ok := rl.config.ActionLimits[action]
	if !ok {
		action = ActionWrite
		limit = ActionLimit{PerSecond: float64(rl.config.WritesPerSecond), Burst: rl.config.WriteBurst}
	}
	bucket := rl.getBucket(action+"|"+ip, rate.Limit(limit.PerSecond), limit.Burst)
	return rl.tryConsume(bucket, action)
}

// tryConsume takes one token, blocking the bucket for IPBlockDuration once it runs dry
func (rl *RateLimiter) tryConsume(bucket *Bucket, action string) (bool, *RateLimitInfo) {
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	bucket.lastSeen = now
	info := &RateLimitInfo{Limit: bucket.limiter.Burst(), Action: action}

	if now.Before(bucket.blockedUntil) {
		info.Blocked = true
		info.RetryAfter = int(bucket.blockedUntil.Sub(now).Seconds()) + 1
		return false, info
	}
	if bucket.limiter.AllowN(now, 1) {
		info.Allowed = true
		info.Remaining = int(bucket.limiter.TokensAt(now))
		return true, info
	}

	bucket.blockedUntil = now.Add(rl.config.IPBlockDuration)
	info.RetryAfter = int(rl.config.IPBlockDuration.Seconds())
	return false, info
}

// ActionFor names the keeper action a POST path performs
func ActionFor(path string) string {
	switch {
	case strings.HasSuffix(path, "/kill"):
		return ActionKill
	case strings.HasSuffix(path, "/reinvest"):
		return ActionReinvest
	case strings.HasPrefix(path, "/v1/prices/"):
		return ActionPrice
	case path == "/v1/advance":
		return ActionAdvance
	default:
		return ActionWrite
	}
}

// RateLimitMiddleware limits every request by IP and each POST by its action budget
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			allowed, info := rl.AllowIP(ip)
			if !allowed {
				writeLimited(w, info)
				return
			}
			setLimitHeaders(w, info)

			if r.Method == http.MethodPost {
				if allowed, info := rl.AllowAction(ip, ActionFor(r.URL.Path)); !allowed {
					writeLimited(w, info)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
}

func writeLimited(w http.ResponseWriter, info *RateLimitInfo) {
	setLimitHeaders(w, info)
	w.Header().Set("Content-Type", "application/json")
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"action":      info.Action,
		"retry_after": info.RetryAfter,
	})
}

// ClientIP returns the first forwarded address, then X-Real-IP, then the peer host
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stats counts live buckets per action
type Stats struct {
	Buckets map[string]int `json:"buckets"`
	Blocked map[string]int `json:"blocked"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() *Stats {
	rl.bucketsMu.RLock()
	defer rl.bucketsMu.RUnlock()

	stats := &Stats{Buckets: make(map[string]int), Blocked: make(map[string]int)}
	now := time.Now()
	for key, b := range rl.buckets {
		kind, _, _ := strings.Cut(key, "|")
		stats.Buckets[kind]++
		b.mu.Lock()
		if now.Before(b.blockedUntil) {
			stats.Blocked[kind]++
		}
		b.mu.Unlock()
	}
	return stats
}
