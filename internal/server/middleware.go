package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/skillbase/skillbase/internal/usercontext"
	"go.uber.org/zap"
)

const authCookieName = "token"

// UserAuthRequired authenticates the caller from an HS256 bearer token
// (Authorization header or the token cookie) and injects the user ID into
// the request context.
func (s *Server) UserAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.parseUserToken(token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := usercontext.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(authCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func (s *Server) parseUserToken(token string) (snowflake.ID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return 0, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrUnauthorized
	}
	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return 0, ErrUnauthorized
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(subject))
	if err != nil {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

func (s *Server) tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
		Type:    "rate_limited",
		Message: "too many checkout attempts",
	}})
}

// CheckoutRateLimit throttles session/order creation per authenticated
// user and holds a single-flight lock for the duration of the request.
// A missing limiter (rate limiting disabled) passes everything.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := usercontext.UserIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, err := s.checkoutLimiter.AllowUser(c.Request.Context(), userID.String())
		if err != nil {
			// Rate limiting is best effort; an unreachable limiter never
			// blocks checkout.
			s.log.Warn("checkout rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			s.tooManyRequests(c)
			return
		}

		release, locked, err := s.checkoutLimiter.LockUser(c.Request.Context(), userID.String())
		if err != nil {
			s.log.Warn("checkout lock failed", zap.Error(err))
			c.Next()
			return
		}
		if !locked {
			s.tooManyRequests(c)
			return
		}
		defer release()
		c.Next()
	}
}
