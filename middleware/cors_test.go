package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCORSApp(config ...CORSConfig) *fiber.App {
	app := fiber.New()
	app.Use(CORS(config...))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestPreflightSetsNumericMaxAge(t *testing.T) {
	app := newCORSApp()

	req := httptest.NewRequest(fiber.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "3600", resp.Header.Get("Access-Control-Max-Age"))
	assert.Equal(t, corsMethods, resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, corsHeaders, resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestAllowedOriginIsEchoed(t *testing.T) {
	app := newCORSApp()

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestUnknownOriginGetsNoAllowHeader(t *testing.T) {
	app := newCORSApp()

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEmptyOriginListAllowsAny(t *testing.T) {
	app := newCORSApp(CORSConfig{MaxAge: 60})

	req := httptest.NewRequest(fiber.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://customer-site.example.com")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "60", resp.Header.Get("Access-Control-Max-Age"))
}
