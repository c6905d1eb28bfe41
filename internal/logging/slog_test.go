package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	return out
}

func TestJSONLogger_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "debug")
	ctx := context.Background()

	log.Debug(ctx, "skipping version without options", "version", "original")
	log.Info(ctx, "storing attachment", "basename", "a.jpg")
	log.Warn(ctx, "release original copy", "error", "busy")
	log.Error(ctx, "reprocess failed", "ref", "Post/1/image")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 4)

	want := []struct{ level, msg, key, val string }{
		{"DEBUG", "skipping version without options", "version", "original"},
		{"INFO", "storing attachment", "basename", "a.jpg"},
		{"WARN", "release original copy", "error", "busy"},
		{"ERROR", "reprocess failed", "ref", "Post/1/image"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, recs[i]["level"])
		assert.Equal(t, w.msg, recs[i]["msg"])
		assert.Equal(t, w.val, recs[i][w.key])
	}
}

func TestJSONLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "warn")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown", "key", "uploads/post/1/original/a.jpg")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "shown", recs[0]["msg"])
	assert.Equal(t, "uploads/post/1/original/a.jpg", recs[0]["key"])
}

func TestWith_AddsAttributesToChildOnly(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, "info")

	child := log.With("owner_type", "Post", "owner_id", "42", "field", "image")
	child.Info(context.Background(), "removing attachment")
	log.Info(context.Background(), "parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, s := range []string{"msg=\"removing attachment\"", "owner_type=Post", "owner_id=42", "field=image"} {
		assert.Contains(t, lines[0], s)
	}
	assert.NotContains(t, lines[1], "owner_type")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNopLogger_DropsEverything(t *testing.T) {
	var l Logger = NewNopLogger()
	assert.NotPanics(t, func() {
		l.With("a", 1).Error(context.Background(), "dropped")
		l.Debug(context.TODO(), "dropped")
	})
}
