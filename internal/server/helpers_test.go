package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"communityId", "community ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		name   string
		url    string
		limit  float64
		offset float64
	}{
		{"defaults", "/items", 25, 0},
		{"custom", "/items?limit=10&offset=30", 10, 30},
		{"clamped", "/items?limit=500&offset=-3", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	s := &Server{}
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, bad := range []string{"abc", "0", "-1"} {
		req = httptest.NewRequest(http.MethodGet, "/items/"+bad, nil)
		resp, err = app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "param %q", bad)
	}
}

func TestSuccessEnvelopeShape(t *testing.T) {
	app := fiber.New()
	app.Get("/list", func(c *fiber.Ctx) error {
		return respondList(c, []string{"a", "b"}, 2)
	})
	app.Get("/message", func(c *fiber.Ctx) error {
		return respondMessage(c, fiber.StatusOK, "done", nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/list", nil))
	require.NoError(t, err)
	var list map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	assert.Equal(t, true, list["success"])
	assert.Equal(t, float64(2), list["count"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/message", nil))
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	_ = resp.Body.Close()
	assert.Equal(t, "done", msg["message"])
	_, hasCount := msg["count"]
	assert.False(t, hasCount)
}
