package gateway

import (
	"context"
	"errors"

	"github.com/example/bistro/pkg/eventloop"
	"github.com/example/bistro/pkg/repository"
	"go.uber.org/zap"
)

// ChangeHandler is implemented by both surfaces.
type ChangeHandler interface {
	HandleChange(ctx context.Context, change repository.Change) error
}

// Watch applies each change to h on its loop, in arrival order, until the
// stream ends. seen, when set, is told about every change first.
func Watch(ctx context.Context, changes <-chan repository.Change, loop *eventloop.Loop, h ChangeHandler, seen func(key string), logger *zap.Logger) {
	for change := range changes {
		if seen != nil {
			seen(change.Key)
		}

		change := change
		err := loop.Do(ctx, func() error {
			return h.HandleChange(ctx, change)
		})
		if errors.Is(err, eventloop.ErrStopped) || ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("Failed to apply change",
				zap.String("surface", loop.Name()),
				zap.String("key", change.Key),
				zap.Error(err))
		}
	}
}
