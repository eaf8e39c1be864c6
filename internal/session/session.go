package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// contextKey is the gin context key under which the Session is stored.
const contextKey = "club_session"

// ErrNoSession is returned when a handler asks for a session that was never set.
var ErrNoSession = errors.New("no session in request context")

// Session carries the authenticated caller's club context through a request.
// It replaces the SPA's global club/auth singleton: every operation receives
// the club and token explicitly, and the raw token is re-attached to
// outbound calls against the upstream services.
type Session struct {
	ClubID string
	UserID string
	Token  string
}

// Middleware validates the Authorization bearer token and stores the resulting
// Session in the gin context. Requests without a valid token are rejected.
func Middleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			logger.Warn("rejected request with invalid token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		clubID, _ := claims["club_id"].(string)
		if clubID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing club_id claim"})
			return
		}
		userID, _ := claims["sub"].(string)

		c.Set(contextKey, Session{ClubID: clubID, UserID: userID, Token: raw})
		c.Next()
	}
}

// FromContext retrieves the Session stored by Middleware.
func FromContext(c *gin.Context) (Session, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, ErrNoSession
	}
	sess, ok := v.(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}
