// Package cookie builds the session cookie.
package cookie

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// SessionCookie returns the cookie carrying token for ttl. On localhost and
// loopback hosts it is scoped to the host and sent over plain HTTP; anywhere
// else it is Secure and host-only.
func SessionCookie(host, name, token string, ttl time.Duration) *http.Cookie {
	cookie := baseCookie(host, name)
	cookie.Value = token
	cookie.MaxAge = int(ttl / time.Second)
	cookie.Expires = time.Now().Add(ttl)

	return cookie
}

// ClearSessionCookie returns a cookie with the same attributes that makes
// the browser drop the session.
func ClearSessionCookie(host, name string) *http.Cookie {
	cookie := baseCookie(host, name)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)

	return cookie
}

func baseCookie(host, name string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	}

	hostname := stripPort(host)
	if IsLocalHost(hostname) {
		cookie.Secure = false
		cookie.Domain = hostname
	}

	return cookie
}

// IsLocalHost reports whether hostname is localhost, a *.localhost name or a loopback IP.
func IsLocalHost(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}

	ip := net.ParseIP(strings.Trim(hostname, "[]"))

	return ip != nil && ip.IsLoopback()
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}
