package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestErrorCarriesRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	log.Error(ctx, "boom", errors.New("boom"))

	assert.Contains(t, buf.String(), `"request_id"`)
	assert.Contains(t, buf.String(), "req-123")
}

func TestWithFieldsScopesEntries(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{
		"order_kind": "ticket",
		"code":       "TKT-1717243200-A7K2MQ",
	})
	log.Info(ctx, "confirmed")

	assert.Contains(t, buf.String(), `"order_kind":"ticket"`)
	assert.Contains(t, buf.String(), "TKT-1717243200-A7K2MQ")
}

func TestParseLevelFallsBack(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
}
