package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/", OutputPath: "/tmp/board.png"}
	require.NoError(t, o.applyDefaults())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, 30*time.Second, o.Timeout)

	o = Options{URL: "http://x/", OutputPath: "p.png", Width: 800, Height: 480, Timeout: time.Second}
	require.NoError(t, o.applyDefaults())
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 480, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestBoardPNGRequiresTargets(t *testing.T) {
	ctx := context.Background()
	assert.ErrorContains(t, BoardPNG(ctx, Options{OutputPath: "x.png"}), "URL is required")
	assert.ErrorContains(t, BoardPNG(ctx, Options{URL: "http://x/"}), "OutputPath is required")
}
