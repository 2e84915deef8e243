package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// credentials returns the configured login and whether login is enabled.
func credentials(c *fiber.Ctx) (username, password string, enabled bool) {
	username = c.Locals("username").(string)
	password = c.Locals("password").(string)
	return username, password, username != "" && password != ""
}

// secretKey signs tokens; changing the credentials invalidates every token.
func secretKey(username, password string) []byte {
	return []byte(username + ":" + password)
}

func LoginHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, _ := credentials(c)

		user := new(User)
		if err := c.BodyParser(user); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if user.Username != username || user.Password != password {
			return fiber.NewError(StatusUnauthorized, ErrBadUsernamePassword)
		}

		now := time.Now()
		claims := jwt.RegisteredClaims{
			Subject:  user.Username,
			IssuedAt: jwt.NewNumericDate(now),
			// nanoseconds keep each token unique
			ID: now.Format(time.RFC3339Nano),
		}
		t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey(username, password))
		if err != nil {
			return err
		}

		return c.JSON(Response{Message: "login successful", Data: t})
	}
}

func AuthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, enabled := credentials(c)
		if !enabled {
			return c.Next()
		}
		// If guests are allowed, enable readonly ops
		if c.Locals("guestmode").(bool) {
			switch c.Method() {
			case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
				return c.Next()
			}
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(StatusUnauthorized, ErrUnauthorized)
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

		claims := new(jwt.RegisteredClaims)
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return secretKey(username, password), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject != username {
			return fiber.NewError(StatusUnauthorized, ErrUnauthorized)
		}

		return c.Next()
	}
}

func AuthConfigHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, _, login := credentials(c)
		response := Response{
			Message: "config retrieved",
			Data: map[string]interface{}{
				"login":     login,
				"anonymous": c.Locals("guestmode").(bool),
			},
		}
		return c.Status(StatusOk).JSON(response)
	}
}

func CheckTokenHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(StatusOk).JSON(Response{Message: "token ok"})
	}
}
