// Package notify delivers priority mail alerts to chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/priority"
)

type Notification struct {
	Priority  priority.Label
	From      string
	Subject   string
	MessageID string
}

// Text renders the notification as a single chat message.
func (n Notification) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(n.Priority)), n.Subject)
	if n.From != "" {
		fmt.Fprintf(&b, "\nFrom: %s", n.From)
	}
	return b.String()
}

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, text string) error
	Health(ctx context.Context) error
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher fans a notification out to every registered channel.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{channels: make(map[string]Channel)}
	for _, c := range channels {
		if err := d.Register(c); err != nil {
			slog.Warn("Notification channel not registered", "error", err)
		}
	}
	return d
}

func (d *Dispatcher) Register(c Channel) error {
	if c == nil {
		return siftErrors.InvalidInput("channel cannot be nil")
	}

	name := c.Name()
	if name == "" {
		return siftErrors.InvalidInput("channel name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return siftErrors.WrapWithCategory(fmt.Errorf("channel %s already registered", name), "register channel", siftErrors.ErrConflict)
	}

	d.channels[name] = c
	slog.Info("Notification channel registered", "name", name)
	return nil
}

func (d *Dispatcher) Unregister(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; !exists {
		return siftErrors.NotFound("channel not found: " + name)
	}

	delete(d.channels, name)
	slog.Info("Notification channel unregistered", "name", name)
	return nil
}

// Notify sends to every channel. A failing channel does not stop the others;
// their errors are joined.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	text := n.Text()

	var errs []error
	for _, c := range d.snapshot() {
		if err := c.Send(ctx, text); err != nil {
			slog.Warn("Notification failed", "channel", c.Name(), "message_id", n.MessageID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) Health(ctx context.Context) error {
	channels := d.snapshot()
	if len(channels) == 0 {
		return siftErrors.Internal("no notification channels registered")
	}

	var unhealthy []string
	for _, c := range channels {
		if err := c.Health(ctx); err != nil {
			unhealthy = append(unhealthy, c.Name())
			slog.Warn("Notification channel unhealthy", "name", c.Name(), "error", err)
		}
	}

	if len(unhealthy) > 0 {
		return siftErrors.Transient(fmt.Sprintf("%d channel(s) unhealthy: %v", len(unhealthy), unhealthy))
	}
	return nil
}

// Channels returns the registered channel names in order.
func (d *Dispatcher) Channels() []string {
	channels := d.snapshot()
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name()
	}
	return names
}

func (d *Dispatcher) snapshot() []Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Channel, 0, len(d.channels))
	for _, c := range d.channels {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Channel) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}
