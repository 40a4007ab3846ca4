package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Counter 在固定時間窗內遞增並回傳計數
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter 以 INCR + EXPIRE 實作固定時間窗計數，多個實例共用同一個計數
type RedisCounter struct {
	client redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, errors.New("rate limit window must be positive")
	}
	bucket := time.Now().UnixNano() / int64(window)
	k := fmt.Sprintf("rl:%s:%d", key, bucket)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

const (
	defaultLimit  = 120
	defaultWindow = time.Minute
)

// RateLimiter 依來源 IP 限制請求次數
type RateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	prefix  string
	trusted []*net.IPNet
}

// NewRateLimiter trustedProxies 為 IP 或 CIDR；只有來自這些位址的請求才採用 X-Forwarded-For
func NewRateLimiter(counter Counter, prefix string, limit int, window time.Duration, trustedProxies ...string) *RateLimiter {
	if limit <= 0 {
		log.Warnf("Invalid rate limit %d, using %d", limit, defaultLimit)
		limit = defaultLimit
	}
	if window <= 0 {
		log.Warnf("Invalid rate limit window %s, using %s", window, defaultWindow)
		window = defaultWindow
	}
	return &RateLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		prefix:  prefix,
		trusted: parseProxies(trustedProxies),
	}
}

// Middleware 超過限制時回傳 429；計數器故障時放行，避免遺失會議訊號
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.prefix + ":" + clientIP(r, l.trusted)
		n, err := l.counter.Incr(r.Context(), key, l.window)
		if err != nil {
			log.WithFields(log.Fields{"key": key, "error": err}).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.limit, 10))
		remaining := l.limit - n
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > l.limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			log.Warnf("Ignoring invalid trusted proxy %q: %v", entry, err)
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP 只有直接連線的對象是受信任的代理時才讀 X-Forwarded-For，
// 並由右往左取第一個不受信任的位址，左側可由客戶端任意偽造
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	remote := net.ParseIP(host)
	if remote == nil || !isTrusted(remote, trusted) {
		return host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}
	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return host
		}
		if !isTrusted(ip, trusted) || i == 0 {
			return ip.String()
		}
	}
	return host
}
