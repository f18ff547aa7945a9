package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContextCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := MakeContextWithLogger(context.Background(), base)
	ctx = MakeContextWithRequestID(ctx, "req-7")
	ctx = MakeContextWithThread(ctx, 12)

	GetLoggerFromContextWithOp(ctx, "pkg.Type.Method").Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-7", record["request_id"])
	assert.Equal(t, float64(12), record["tid"])
	assert.Equal(t, "pkg.Type.Method", record["op"])
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestIDFromCtx(context.Background()))
	assert.Len(t, NewRequestID(), 36)
}
