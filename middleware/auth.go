// middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID is the fiber Locals key holding the authenticated user id.
const LocalUserID = "userId"

var (
	errMissingToken = errors.New("missing bearer token")
	errBadClaims    = errors.New("token has no user_id claim")
)

// Auth verifies HMAC signed bearer tokens issued by the account service.
type Auth struct {
	secret  []byte
	isAdmin func(userID string) bool
}

func NewAuth(secret string, isAdmin func(userID string) bool) *Auth {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Auth{secret: []byte(secret), isAdmin: isAdmin}
}

// ParseToken validates tokenString and returns its user_id claim.
func (a *Auth) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadClaims
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	return "", errBadClaims
}

// IssueToken signs a token for userID valid for ttl. Production tokens come
// from the account service; this is for tests and local tooling.
func (a *Auth) IssueToken(userID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// Middleware requires a valid bearer token.
func (a *Auth) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		userID, err := a.ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// WebSocket accepts the token from the Authorization header or, since
// browsers cannot set headers on upgrades, from the token query parameter.
func (a *Auth) WebSocket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": errMissingToken.Error()})
		}
		userID, err := a.ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// Admin must run after Middleware.
func (a *Auth) Admin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := GetUserID(c)
		if err != nil || !a.isAdmin(userID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "Access denied. Admin privileges required."})
		}
		return c.Next()
	}
}

// GetUserID returns the authenticated user id.
func GetUserID(c *fiber.Ctx) (string, error) {
	if id, ok := c.Locals(LocalUserID).(string); ok && id != "" {
		return id, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
}
