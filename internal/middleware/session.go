package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/repository"
)

// WalletSession returns an Echo middleware that validates a Bearer session
// token and re-validates the wallet it names against the data store. The
// session token is only a pointer to an identity: the user's current role
// and profile are loaded fresh from MongoDB on every request, so a client
// holding a stale or tampered cached identity cannot act on it. On success
// the request context carries "wallet", "role" and the loaded "user".
func WalletSession(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// Type assert the signing method to HMAC; reject others.
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			wallet, _ := claims["wallet"].(string)
			if wallet == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			// The wallet may have been unlinked since the token was issued;
			// a token is only as good as the record behind it.
			u, err := users.GetByWallet(ctx, wallet)
			if err != nil {
				if err == repository.ErrUserNotFound {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wallet no longer registered"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session validation failed"})
			}

			c.Set("wallet", u.WalletID)
			c.Set("role", u.Role)
			c.Set("user", u)
			return next(c)
		}
	}
}
