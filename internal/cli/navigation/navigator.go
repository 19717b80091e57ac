package navigation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/core/guard"
	"github.com/yndnr/jobdesk-go/internal/storage"
)

// KV keys.
const (
	KeyCurrent    = "jobdesk/nav/current"
	KeyReturnHint = "jobdesk/nav/return_hint"
)

// Navigator is a KV-backed implementation of the manager's navigator.
//
// Storage failures are logged and never surface: navigation state is a
// convenience, and losing it only means starting again from "/".
type Navigator struct {
	kv     storage.KVEngine
	logger *slog.Logger

	mu      sync.Mutex
	visited []string
	onMove  func(from, to string)
}

// New creates a navigator on kv.
func New(kv storage.KVEngine, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{kv: kv, logger: logger}
}

// OnMove registers a callback run after every Go. The CLI uses it to print
// redirects.
func (n *Navigator) OnMove(f func(from, to string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onMove = f
}

// Current returns the current location, "/" when none was recorded.
func (n *Navigator) Current(ctx context.Context) string {
	v := n.get(ctx, KeyCurrent)
	if v == "" {
		return domain.PathRoot
	}
	return domain.CleanPath(v)
}

// Go moves to location.
func (n *Navigator) Go(ctx context.Context, location string) {
	location = domain.CleanPath(location)
	from := n.Current(ctx)
	n.set(ctx, KeyCurrent, location)

	n.mu.Lock()
	n.visited = append(n.visited, location)
	hook := n.onMove
	n.mu.Unlock()

	if hook != nil && from != location {
		hook(from, location)
	}
}

// SetReturnHint records where to go after the next successful login.
func (n *Navigator) SetReturnHint(ctx context.Context, path string) {
	n.set(ctx, KeyReturnHint, domain.CleanPath(path))
}

// PeekReturnHint returns the hint without consuming it.
func (n *Navigator) PeekReturnHint(ctx context.Context) string {
	return n.get(ctx, KeyReturnHint)
}

// TakeReturnHint returns and clears the hint.
func (n *Navigator) TakeReturnHint(ctx context.Context) string {
	v := n.get(ctx, KeyReturnHint)
	if v == "" {
		return ""
	}
	if err := n.kv.Delete(ctx, []byte(KeyReturnHint)); err != nil {
		n.logger.Warn("failed to clear return hint", "error", err)
	}
	return v
}

// Apply carries out a guard decision and returns the resulting location.
func (n *Navigator) Apply(ctx context.Context, d guard.Decision) string {
	switch d.Outcome {
	case guard.RedirectLogin:
		if d.ReturnTo != "" && !domain.IsPublicPath(d.ReturnTo) {
			n.SetReturnHint(ctx, d.ReturnTo)
		}
		n.Go(ctx, domain.PathLogin)
	default:
		n.Go(ctx, d.Location)
	}
	return n.Current(ctx)
}

// Visited returns the locations moved to by this process, oldest first.
func (n *Navigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.visited))
	copy(out, n.visited)
	return out
}

func (n *Navigator) get(ctx context.Context, key string) string {
	v, err := n.kv.Get(ctx, []byte(key))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			n.logger.Warn("navigation state unreadable", "key", key, "error", err)
		}
		return ""
	}
	return string(v)
}

func (n *Navigator) set(ctx context.Context, key, value string) {
	if err := n.kv.Set(ctx, []byte(key), []byte(value)); err != nil {
		n.logger.Warn("failed to persist navigation state", "key", key, "error", err)
	}
}
