package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// OwnerMiddleware extracts an opaque owner identifier for the request, when
// one is present. Identity is never required: shares without an owner are
// orphan shares, and no endpoint authorizes anything based on the owner id.
//
// Sources, in order: a bearer token's subject claim (verified against the
// configured secret when one is set, otherwise parsed unverified), the
// X-Owner-ID header, the user_id query parameter.
func OwnerMiddleware(jwtSecret string) gin.HandlerFunc {
	parser := jwt.NewParser()

	return func(c *gin.Context) {
		if owner := ownerFromToken(parser, c.GetHeader("Authorization"), jwtSecret); owner != "" {
			c.Set("ownerID", owner)
		} else if owner := c.GetHeader("X-Owner-ID"); owner != "" {
			c.Set("ownerID", owner)
		} else if owner := c.Query("user_id"); owner != "" {
			c.Set("ownerID", owner)
		}

		c.Next()
	}
}

func ownerFromToken(parser *jwt.Parser, authHeader, secret string) string {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	raw := strings.TrimPrefix(authHeader, "Bearer ")

	var claims jwt.RegisteredClaims
	if secret == "" {
		if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
			return ""
		}
		return claims.Subject
	}

	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.Subject
}

// OwnerID returns the extracted owner id, nil when the request is anonymous.
func OwnerID(c *gin.Context) *string {
	if owner := c.GetString("ownerID"); owner != "" {
		return &owner
	}
	return nil
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Owner-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
