package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/fadilmartias/project-evaluator/internal/util"
)

// APIKeyAuth requires "Authorization: Bearer <key>" matching one of keys.
// With no keys configured every request passes.
func APIKeyAuth(keys []string, skip func(c *fiber.Ctx) bool) fiber.Handler {
	if len(keys) == 0 {
		log.Println("Warning: AUTH_API_KEYS not set, API authentication disabled")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	hashed := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		hashed = append(hashed, sha256.Sum256([]byte(k)))
	}

	return keyauth.New(keyauth.Config{
		Next:       skip,
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			sum := sha256.Sum256([]byte(key))
			for _, h := range hashed {
				if subtle.ConstantTimeCompare(sum[:], h[:]) == 1 {
					return true, nil
				}
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusUnauthorized,
				Message: "Invalid or missing API key",
			})
		},
	})
}
