package httpapi

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

type authError struct {
	status  int
	code    string
	message string
}

func (e *authError) Error() string {
	return e.message
}

// authorize enforces the static bearer token when one is configured. The
// daemon listens on loopback by default, so an empty token means open
// access.
func (s *Server) authorize(r *http.Request) *authError {
	if s.cfg.APIToken == "" {
		return nil
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return &authError{
			status:  http.StatusUnauthorized,
			code:    "unauthorized",
			message: "missing or invalid bearer token",
		}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if !hmac.Equal([]byte(token), []byte(s.cfg.APIToken)) {
		return &authError{
			status:  http.StatusUnauthorized,
			code:    "unauthorized",
			message: "invalid bearer token",
		}
	}
	return nil
}
