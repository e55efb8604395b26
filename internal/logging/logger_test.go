package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/soltix-transform/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "transform")

	l.Error("evaluation failed", "function", "MOVING", "error", errors.New("bad window"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "evaluation failed", entry["message"])
	assert.Equal(t, "transform", entry["component"])
	assert.Equal(t, "MOVING", entry["function"])
	assert.Equal(t, "bad window", entry["error"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)

	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, l.DebugEnabled())

	Nop().Error("discarded")
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithFunction(ctx, "SUM")

	InfoCtx(ctx, "done")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "SUM", entry["function"])
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, Global(), FromContext(context.Background()))
}

func TestFiberMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(FiberMiddleware(NewWithWriter(&buf, zerolog.InfoLevel)))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "Request completed", entry["message"])
	assert.Equal(t, "/ping", entry["path"])
}

func TestFiberMiddleware_SkipPaths(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(FiberMiddlewareWithConfig(NewWithWriter(&buf, zerolog.InfoLevel), DefaultMiddlewareConfig()))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Zero(t, buf.Len())
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "transformd.log")

	l, err := NewFromConfig(config.LoggingConfig{Level: "WARN", Format: "json", OutputPath: path})
	require.NoError(t, err)
	l.Info("dropped")
	l.Warn("kept", "function", "SUM")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"function":"SUM"`)

	l, err = NewFromConfig(config.LoggingConfig{Level: "nonsense", OutputPath: "discard"})
	require.NoError(t, err)
	assert.False(t, l.DebugEnabled())

	assert.Equal(t, rfc3339Millis, timeFormat("UnixMs"))
	assert.Equal(t, time.RFC3339, timeFormat("whatever"))
}
