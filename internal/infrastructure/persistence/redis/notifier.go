package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/JohnHuang626/school-score-app/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// ChangeKind identifies which dataset changed.
type ChangeKind string

const (
	// ChangeScoreEvents signals that the score event log changed.
	ChangeScoreEvents ChangeKind = "score_events"

	// ChangeRosterSettings signals that the roster settings changed.
	ChangeRosterSettings ChangeKind = "roster_settings"
)

// ChangeChannel is the pub/sub channel carrying change signals.
const ChangeChannel = PrefixPubSub + "changes"

// changeEnvelope is the wire format of a change signal.
type changeEnvelope struct {
	Kind       ChangeKind `json:"kind"`
	InstanceID string     `json:"instance_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ChangeNotifier broadcasts data-change signals over Redis pub/sub so every
// running instance reloads its snapshot. Signals carry no payload; receivers
// always re-read the store, which makes delivery loss recoverable by the
// periodic reconcile.
//
// The publishing instance receives its own signals too. Reload is idempotent,
// so self-delivery just keeps local and remote instances on one code path.
type ChangeNotifier struct {
	cache      *Cache
	instanceID string
}

// NewChangeNotifier creates a new ChangeNotifier.
func NewChangeNotifier(cache *Cache) *ChangeNotifier {
	return &ChangeNotifier{
		cache:      cache,
		instanceID: fmt.Sprintf("instance-%d", time.Now().UnixNano()),
	}
}

// NotifyEventsChanged signals that the score event log changed.
func (n *ChangeNotifier) NotifyEventsChanged(ctx context.Context) error {
	return n.publish(ctx, ChangeScoreEvents)
}

// NotifySettingsChanged signals that the roster settings changed.
func (n *ChangeNotifier) NotifySettingsChanged(ctx context.Context) error {
	return n.publish(ctx, ChangeRosterSettings)
}

func (n *ChangeNotifier) publish(ctx context.Context, kind ChangeKind) error {
	envelope := changeEnvelope{
		Kind:       kind,
		InstanceID: n.instanceID,
		OccurredAt: time.Now().UTC(),
	}
	if err := n.cache.Publish(ctx, ChangeChannel, envelope); err != nil {
		return fmt.Errorf("publish change signal: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE LISTENER
// ══════════════════════════════════════════════════════════════════════════════

// ChangeListener subscribes to the change channel and invokes a callback per
// signal. Malformed messages are logged and dropped.
type ChangeListener struct {
	cache  *Cache
	log    *logger.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewChangeListener creates a new ChangeListener.
func NewChangeListener(cache *Cache, log *logger.Logger) *ChangeListener {
	return &ChangeListener{cache: cache, log: log}
}

// Start begins consuming change signals until Stop is called. The callback
// runs on the subscription goroutine, so it must not block for long.
func (l *ChangeListener) Start(onChange func(ctx context.Context, kind ChangeKind)) {
	ctx, cancel := context.WithCancel(context.Background())

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	sub := l.cache.Subscribe(ctx, ChangeChannel)
	messages := sub.Channel()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var envelope changeEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					l.log.Warn("dropping malformed change signal", logger.Err(err))
					continue
				}

				l.log.Debug("change signal received",
					logger.Component("change_listener"),
					logger.String("kind", string(envelope.Kind)),
				)
				onChange(ctx, envelope.Kind)
			}
		}
	}()
}

// Stop cancels the subscription and waits for the consumer to exit.
func (l *ChangeListener) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}
