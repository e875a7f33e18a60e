package concurrency

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/harunnryd/vibechat/internal/logger"
)

// SafeGo runs fn in its own goroutine. A panic is logged with its stack and
// passed to onPanic instead of taking the process down.
func SafeGo(ctx context.Context, name string, fn func(), onPanic func(any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				attrs := append([]any{"routine", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack())}, logger.Attrs(ctx)...)
				slog.Error("Panic recovered", attrs...)
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
