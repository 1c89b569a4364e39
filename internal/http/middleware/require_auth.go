package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

const CtxKeyUserID = "user_id"

// RequireAuth validates the bearer token and stashes the subject as the
// request's user id.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			Fail(c, apperr.UnauthorizedErr("Authentication required."))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			Fail(c, apperr.UnauthorizedErr("Invalid or expired token."))
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			Fail(c, apperr.UnauthorizedErr("Invalid token claims."))
			return
		}

		c.Set(CtxKeyUserID, sub)
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
