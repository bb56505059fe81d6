package monitor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedLines(t *testing.T) {
	src := NewEmitter()
	var got []Event
	src.Subscribe(func(evt Event) { got = append(got, evt) })

	input := "hello\n:hide\n:show\n\n:unload\n:quit\nnever read\n"
	quit, err := FeedLines(context.Background(), strings.NewReader(input), src)
	require.NoError(t, err)
	assert.True(t, quit)

	assert.Equal(t, []Event{
		InputEvent(InputKeyboard),
		VisibilityEvent(true),
		VisibilityEvent(false),
		InputEvent(InputKeyboard),
		UnloadEvent(),
	}, got)
}

func TestFeedLines_EOF(t *testing.T) {
	quit, err := FeedLines(context.Background(), strings.NewReader("typing"), NewEmitter())
	require.NoError(t, err)
	assert.False(t, quit)
}
