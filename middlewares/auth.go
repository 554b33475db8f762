package middlewares

import (
	"errors"
	"strings"
	"time"

	"coderoast-backend/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "jwt"

	localUserID = "userID"
)

// Auth issues and verifies HS256 session tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{secret: []byte(secret), ttl: ttl}
}

// TTL is the lifetime of issued tokens.
func (a *Auth) TTL() time.Duration { return a.ttl }

// IsAuthenticated accepts a Bearer token or the session cookie, enforces HS256,
// and populates c.Locals("userID").
func (a *Auth) IsAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := ""
		if h := c.Get(authHeader); strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
			raw = strings.TrimSpace(h[len(bearerPrefix):])
		}
		if raw == "" {
			raw = c.Cookies(SessionCookie)
		}
		if raw == "" {
			return apperr.Unauthenticated("Unauthorized")
		}

		userID, err := a.Parse(raw)
		if err != nil {
			return apperr.Unauthenticated("Unauthorized")
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// Parse validates a token and returns its subject.
func (a *Auth) Parse(raw string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims jwt.RegisteredClaims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token missing subject")
	}
	return claims.Subject, nil
}

// GenerateJWT signs a new HS256 token for the given user.
func (a *Auth) GenerateJWT(userID string) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// UserID returns the authenticated user for the request, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
