package ratelimit

import "net/http"

const keyPrefix = "rate-limit"

// Key builds the quota key bucketing counters per (caller, route).
func Key(caller, route string) string {
	return keyPrefix + ":" + caller + ":" + route
}

// CallerIP derives the caller identity from the forwarded-IP header chain,
// first present wins, defaulting to loopback.
func CallerIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return "127.0.0.1"
}
