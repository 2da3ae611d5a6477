package ledger

import (
	"time"

	"github.com/mmynk/settlewise/internal/metrics"
)

// Option configures a Settler or a BillBook.
type Option func(*notifier)

// WithPublisher sets where committed changes are announced.
func WithPublisher(p Publisher) Option {
	return func(n *notifier) {
		n.publisher = p
	}
}

// WithMetrics records settle-ups and published events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *notifier) {
		n.metrics = m
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *notifier) {
		n.now = now
	}
}

func newNotifier(opts []Option) notifier {
	n := notifier{publisher: NopPublisher{}, now: time.Now}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}
