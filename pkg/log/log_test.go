package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	// Test Ctx without a logger in the context
	l1 := Ctx(ctx)
	require.NotNil(t, l1, "Ctx returned nil instead of default logger")
	assert.Equal(t, defaultLogger, l1, "Ctx should return defaultLogger")

	customLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	require.NotEqual(t, defaultLogger, customLogger, "Failed to create a distinct custom logger for testing")

	ctxWithLogger := With(ctx, customLogger)
	l2 := Ctx(ctxWithLogger)
	require.NotNil(t, l2, "Ctx returned nil, expected custom logger")
	assert.Equal(t, customLogger, l2, "Ctx should return customLogger")
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := With(context.Background(), base)

	t.Run("no attrs keeps logger", func(t *testing.T) {
		assert.Equal(t, base, Ctx(WithAttrs(ctx)))
	})

	t.Run("attrs are attached", func(t *testing.T) {
		buf.Reset()
		ctx := WithAttrs(ctx, slog.String("projectID", "p1"), slog.Int("tenants", 3))
		Ctx(ctx).InfoContext(ctx, "resolved")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "p1", rec["projectID"])
		assert.Equal(t, float64(3), rec["tenants"])
		assert.Equal(t, "resolved", rec["msg"])
	})
}
