package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	newApp := func(key string) *fiber.App {
		app := fiber.New()
		app.Use(New(Config{ApiKey: key}))
		app.Get("/ping", func(c *fiber.Ctx) error {
			return c.SendString("pong")
		})
		return app
	}

	t.Run("MissingKeyRejected", func(t *testing.T) {
		app := newApp("secret")
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("WrongKeyRejected", func(t *testing.T) {
		app := newApp("secret")
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Api-Key", "guess")
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("CorrectKeyAccepted", func(t *testing.T) {
		app := newApp("secret")
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Api-Key", "secret")
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("EmptyKeyDisablesAuth", func(t *testing.T) {
		app := newApp("")
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
