package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZapLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "checkin.log")

	l, err := New(Options{Level: "debug", File: path}, nil)
	require.NoError(t, err)

	zl, ok := l.(*ZapLogger)
	require.True(t, ok)

	ctx := context.Background()
	zl.With("person", "budi").Info(ctx, "attempt committed", "date", "2026-10-15")
	zl.Debug(ctx, "state", "to", "Submitting")
	_ = zl.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	for _, s := range []string{`"msg":"attempt committed"`, `"person":"budi"`, `"date":"2026-10-15"`, `"level":"debug"`} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %s in output, got:\n%s", s, out)
		}
	}
}

func TestZapLogger_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	zl, err := NewZapLogger(Options{Level: "warn", File: path})
	require.NoError(t, err)

	ctx := context.Background()
	zl.Info(ctx, "hidden")
	zl.Error(ctx, "shown")
	_ = zl.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), "shown")
}
