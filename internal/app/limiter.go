package app

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

var heavyLimiter = make(chan struct{}, 2)

// runHeavy serializes expensive background work (chart rendering, vacuum)
// so it never starves request handlers.
func runHeavy(name string, fn func()) {
	safeGo(name, func() {
		heavyLimiter <- struct{}{}
		defer func() { <-heavyLimiter }()
		fn()
	})
}

const writeMinInterval = 500 * time.Millisecond

var (
	clientLastReqMu sync.Mutex
	clientLastReq   = make(map[string]time.Time)
)

// withRateLimit throttles write requests per client address. Reads pass
// through untouched.
func (srv *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			key := clientKey(r)
			now := time.Now()
			clientLastReqMu.Lock()
			last, seen := clientLastReq[key]
			if seen && now.Sub(last) < writeMinInterval {
				clientLastReqMu.Unlock()
				writeError(w, http.StatusTooManyRequests, "slow down")
				return
			}
			clientLastReq[key] = now
			clientLastReqMu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func cleanupRateLimits(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	clientLastReqMu.Lock()
	for key, t := range clientLastReq {
		if t.Before(cutoff) {
			delete(clientLastReq, key)
		}
	}
	clientLastReqMu.Unlock()
}
