package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// tokenExpired reports whether token is a JWT whose exp claim lies in the
// past. The token is valid at the exp second and expired after it. Tokens
// that are not JWTs, or carry no exp, never expire client-side. The
// signature is not checked; that is the server's job.
func tokenExpired(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return false
	}

	var claims struct {
		Exp json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == "" {
		return false
	}
	exp, err := claims.Exp.Float64()
	if err != nil {
		return false
	}
	return now.Unix() > int64(exp)
}
