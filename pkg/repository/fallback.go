package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const remoteNotice = "Remote store unavailable, changes were saved locally"

// ProbeRemote performs the startup reachability check. A remote that fails
// it is dropped for the rest of the process and nil is returned.
func ProbeRemote(ctx context.Context, remote Remote, logger *zap.Logger) Remote {
	if remote == nil {
		return nil
	}
	if err := remote.Probe(ctx); err != nil {
		logger.Warn("Remote store unreachable, using local persistence only",
			zap.String("backend", remote.Name()),
			zap.Error(err))
		return nil
	}
	logger.Info("Remote store reachable", zap.String("backend", remote.Name()))
	return remote
}

// FallbackObserver is told about every operation that fell back to local.
type FallbackObserver func(collection, op string)

// Fallback sends every operation to the remote store when one is
// configured and retries it against local persistence on any failure. A
// failed call does not disable the remote for the next one.
type Fallback struct {
	remote   Remote
	local    *Local
	logger   *zap.Logger
	observer FallbackObserver

	mu     sync.Mutex
	notice string
}

func NewFallback(remote Remote, local *Local, logger *zap.Logger, observer FallbackObserver) *Fallback {
	if observer == nil {
		observer = func(string, string) {}
	}
	return &Fallback{
		remote:   remote,
		local:    local,
		logger:   logger.Named("persistence"),
		observer: observer,
	}
}

func (f *Fallback) Name() string {
	if f.remote != nil {
		return f.remote.Name() + "+local"
	}
	return f.local.Name()
}

func (f *Fallback) Configured() bool {
	return f.remote != nil
}

// TakeNotice returns and clears the pending passive notice, if any.
func (f *Fallback) TakeNotice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.notice
	f.notice = ""
	return n
}

func (f *Fallback) List(ctx context.Context, c Collection, dest interface{}) (bool, error) {
	if f.remote != nil {
		found, err := f.remote.List(ctx, c, dest)
		if err == nil {
			return found, nil
		}
		f.fellBack(c, "list", err)
		reset(dest)
	}
	return f.local.List(ctx, c, dest)
}

func (f *Fallback) Put(ctx context.Context, c Collection, id string, record interface{}) error {
	return f.write(ctx, c, "put", func(b Backend) error {
		return b.Put(ctx, c, id, record)
	})
}

func (f *Fallback) Update(ctx context.Context, c Collection, id string, fields Fields) error {
	return f.write(ctx, c, "update", func(b Backend) error {
		return b.Update(ctx, c, id, fields)
	})
}

func (f *Fallback) Delete(ctx context.Context, c Collection, id string) error {
	return f.write(ctx, c, "delete", func(b Backend) error {
		return b.Delete(ctx, c, id)
	})
}

func (f *Fallback) write(ctx context.Context, c Collection, op string, fn func(Backend) error) error {
	if f.remote != nil {
		err := fn(f.remote)
		if err == nil {
			f.local.announce(ctx, c.WriteKeys...)
			return nil
		}
		f.fellBack(c, op, err)
	}
	return fn(f.local)
}

func (f *Fallback) fellBack(c Collection, op string, err error) {
	f.logger.Warn("Remote store call failed, falling back to local persistence",
		zap.String("collection", c.Name),
		zap.String("op", op),
		zap.Error(err))
	f.observer(c.Name, op)

	f.mu.Lock()
	f.notice = remoteNotice
	f.mu.Unlock()
}
