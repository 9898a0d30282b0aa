package transport

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/argon2"

	"github.com/Aukciszek/backend/protoerr"
)

// argon2Params mirrors the passlib argon2 scheme's defaults used by the
// original backend's authentication layer.
var argon2Params = struct {
	time, memory uint32
	threads      uint8
	keyLen       uint32
	saltLen      uint32
}{time: 3, memory: 64 * 1024, threads: 4, keyLen: 32, saltLen: 16}

// hashPassword returns an argon2id hash encoded as salt:hash (both hex),
// suitable for storage in the admin user table.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argon2Params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generating salt: %v", protoerr.ErrInternal, err)
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Params.time, argon2Params.memory, argon2Params.threads, argon2Params.keyLen)
	return fmt.Sprintf("%x:%x", salt, hash), nil
}

// verifyPassword checks password against an encoded salt:hash, in
// constant time.
func verifyPassword(password, encoded string) bool {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argon2Params.time, argon2Params.memory, argon2Params.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// claims is the JWT payload: a user id plus the admin flag every
// admin-gated operation checks.
type claims struct {
	UserID  string `json:"uid"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// AuthConfig holds the HMAC signing secret and token lifetime.
type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

// IssueToken creates a signed JWT for a user, tagging whether they hold
// the admin role (orchestrator-facing operations require this flag).
func (c AuthConfig) IssueToken(userID string, isAdmin bool) (string, error) {
	now := time.Now()
	cl := claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	return token.SignedString(c.Secret)
}

var errInvalidToken = errors.New("invalid authentication credentials")

// currentUser extracts the bearer token from the Authorization header and
// validates it against the configured secret.
func (c AuthConfig) currentUser(r *http.Request) (claims, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return claims{}, errInvalidToken
	}
	raw := strings.TrimPrefix(header, prefix)

	var cl claims
	token, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.Secret, nil
	})
	if err != nil || !token.Valid {
		return claims{}, errInvalidToken
	}
	return cl, nil
}

// requireAdmin wraps a handler so it only runs for a valid, admin-flagged
// bearer token; otherwise it writes a 401/403 and returns.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cl, err := s.Auth.currentUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}
		if !cl.IsAdmin {
			writeError(w, http.StatusForbidden, "you do not have permission to access this resource")
			return
		}
		next(w, r)
	}
}
