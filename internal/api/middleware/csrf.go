package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
)

// SetCSRFCookie issues the double-submit token alongside the session
// cookie. Browser clients echo it in X-CSRF-Token on unsafe requests.
func SetCSRFCookie(w http.ResponseWriter, secure bool, maxAge int) error {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: false, // read by the client
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
	return nil
}

// ClearCSRFCookie expires the token on logout.
func ClearCSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   csrfCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// CSRF rejects unsafe requests that authenticate with the session cookie
// unless X-CSRF-Token matches the csrf_token cookie. Requests carrying a
// bearer or X-Auth-Token header are not cookie-authenticated and pass.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		// Auth prefers header tokens over the cookie, so such requests are
		// not cookie-authenticated.
		if headerToken(r) != "" {
			next.ServeHTTP(w, r)
			return
		}
		if session, err := r.Cookie("token"); err != nil || session.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(csrfHeaderName)
		if provided == "" {
			writeError(w, http.StatusForbidden, "CSRF token missing")
			return
		}
		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(provided)) != 1 {
			writeError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
