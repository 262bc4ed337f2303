// Package eventloop serializes every operation of a surface through one
// protoactor mailbox, so in-memory stores see one operation at a time.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const defaultCallTimeout = 30 * time.Second

var ErrStopped = errors.New("event loop stopped")

type task struct {
	fn func() (interface{}, error)
}

type result struct {
	value interface{}
	err   error
}

type loopActor struct {
	name   string
	logger *zap.Logger
}

func (a *loopActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *task:
		res := a.run(msg)
		if ctx.Sender() != nil {
			ctx.Respond(res)
		} else if res.err != nil {
			a.logger.Warn("Posted operation failed", zap.Error(res.err))
		}

	case *actor.Started:
		a.logger.Info("Event loop started")

	case *actor.Stopped:
		a.logger.Info("Event loop stopped")
	}
}

// run keeps a panicking operation from restarting the actor and leaving
// the caller waiting on its future.
func (a *loopActor) run(t *task) (res *result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Operation panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = &result{err: fmt.Errorf("operation panicked: %v", r)}
		}
	}()
	v, err := t.fn()
	return &result{value: v, err: err}
}

// Loop owns one actor. Operations run in the order they were submitted.
type Loop struct {
	name    string
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
	logger  *zap.Logger
	done    chan struct{}
}

func New(system *actor.ActorSystem, name string, logger *zap.Logger) (*Loop, error) {
	logger = logger.Named("eventloop").With(zap.String("loop", name))
	props := actor.PropsFromProducer(func() actor.Actor {
		return &loopActor{name: name, logger: logger}
	})
	pid, err := system.Root.SpawnNamed(props, name)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %s loop: %w", name, err)
	}

	return &Loop{
		name:    name,
		system:  system,
		pid:     pid,
		timeout: defaultCallTimeout,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

func (l *Loop) Name() string {
	return l.name
}

// Do runs fn on the loop and waits for it. The wait ends at ctx's
// deadline, but fn itself is never interrupted once started.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	_, err := l.call(ctx, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Call runs fn on the loop and returns its result.
func Call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	v, err := l.call(ctx, func() (interface{}, error) {
		return fn()
	})
	var zero T
	if v == nil {
		return zero, err
	}
	return v.(T), err
}

func (l *Loop) call(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	select {
	case <-l.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	timeout := l.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	res, err := l.system.Root.RequestFuture(l.pid, &task{fn: fn}, timeout).Result()
	if err != nil {
		if errors.Is(err, actor.ErrTimeout) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to run on %s loop: %w", l.name, err)
	}
	r, ok := res.(*result)
	if !ok {
		return nil, fmt.Errorf("unexpected reply %T from %s loop", res, l.name)
	}
	return r.value, r.err
}

// Post queues fn without waiting for it.
func (l *Loop) Post(fn func() error) {
	select {
	case <-l.done:
		return
	default:
	}
	l.system.Root.Send(l.pid, &task{fn: func() (interface{}, error) {
		return nil, fn()
	}})
}

// Every posts fn each interval until ctx is done or the loop stops.
func (l *Loop) Every(ctx context.Context, interval time.Duration, fn func() error) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Post(fn)
			}
		}
	}()
}

// Stop stops the actor. Operations still queued are dropped.
func (l *Loop) Stop() {
	select {
	case <-l.done:
		return
	default:
		close(l.done)
	}
	if err := l.system.Root.StopFuture(l.pid).Wait(); err != nil {
		l.logger.Warn("Event loop did not stop cleanly", zap.Error(err))
	}
}
