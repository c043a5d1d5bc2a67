package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims. Reviewers moderate listings; everyone else
// is a regular marketplace user.
const (
	RoleUser     = "user"
	RoleReviewer = "reviewer"
)

const identityKey = "auth.identity"

// Identity is the caller identity extracted from a verified token.
type Identity struct {
	UserID string
	Role   string
}

// IsReviewer reports whether the caller may moderate listings.
func (id Identity) IsReviewer() bool {
	return id.Role == RoleReviewer
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token carrying the user id and role.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns the caller identity.
func ParseToken(secret, tokenStr string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil {
		return Identity{}, err
	}
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: c.Subject, Role: role}, nil
}

// Middleware validates the Bearer token and stores the caller identity on
// the request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		ident, err := ParseToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireReviewer aborts with 403 unless the caller holds the reviewer role.
func RequireReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := FromContext(c)
		if !ok || !ident.IsReviewer() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "reviewer role required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity set by Middleware.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}
