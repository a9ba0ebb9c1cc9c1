package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlErrorFormat(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewNetwork("naver_cafe", "fetch failed", inner)

	assert.Contains(t, err.Error(), "network")
	assert.Contains(t, err.Error(), "naver_cafe")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, inner)
	assert.False(t, err.Time.IsZero())

	bare := NewValidation("daum_cafe", "keyword is empty")
	assert.NotContains(t, bare.Error(), "-")
}

func TestFallsThrough(t *testing.T) {
	fallthroughs := []*CrawlError{
		NewNetwork("s", "m", nil),
		NewParse("s", "m", nil),
		NewAuth("s", "m", nil),
		NewRateLimit("s", time.Minute),
	}
	for _, e := range fallthroughs {
		assert.True(t, e.FallsThrough(), string(e.Type))
	}

	terminal := []*CrawlError{
		NewPersistence("s", "m", nil),
		NewValidation("s", "m"),
		NewConfiguration("m", nil),
	}
	for _, e := range terminal {
		assert.False(t, e.FallsThrough(), string(e.Type))
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewPersistence("naver_cafe", "insert failed", inner)

	var ce *CrawlError
	require.ErrorAs(t, error(err), &ce)
	assert.Equal(t, ErrorTypePersistence, ce.Type)
	assert.Equal(t, inner, errors.Unwrap(err))
}
