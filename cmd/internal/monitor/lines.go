package monitor

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Commands understood by FeedLines, any other line counts as keyboard input.
const (
	CommandHide   = ":hide"
	CommandShow   = ":show"
	CommandUnload = ":unload"
	CommandQuit   = ":quit"
)

// FeedLines turns a terminal session into host events. It returns on
// ":quit", at EOF or when ctx is done, reporting whether the user quit.
func FeedLines(ctx context.Context, r io.Reader, emitter *Emitter) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return false, err
				default:
					return false, nil
				}
			}

			switch strings.TrimSpace(line) {
			case CommandQuit:
				return true, nil
			case CommandHide:
				emitter.Emit(VisibilityEvent(true))
			case CommandShow:
				emitter.Emit(VisibilityEvent(false))
			case CommandUnload:
				emitter.Emit(UnloadEvent())
			default:
				emitter.Emit(InputEvent(InputKeyboard))
			}
		}
	}
}
