package camera

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

const defaultOutboxSize = 1024

type outboxItem struct {
	env     models.Envelope
	barrier chan struct{}
}

type pendingEnvelope struct {
	seq uint64
	env models.Envelope
}

// outbox decouples camera jobs from the sinks. Jobs enqueue and return; a
// single drain goroutine publishes in enqueue order.
//
// Events, status, completion, errors, warnings and sessions are never
// dropped: when the queue is full the enqueue waits for room. Statistics,
// site statistics and progress are snapshots, so when the queue is full only
// the newest one per type and role is kept and published once the queue
// catches up.
type outbox struct {
	publisher models.MessagePublisher
	timeout   time.Duration
	logger    zerolog.Logger

	queue   chan outboxItem
	drained chan struct{}

	// closeMu guards closed against enqueues racing the final close
	closeMu sync.RWMutex
	closed  bool

	pendingMu sync.Mutex
	pending   map[string]pendingEnvelope
	seq       uint64

	coalesced atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

func newOutbox(publisher models.MessagePublisher, size int, timeout time.Duration, logger zerolog.Logger) *outbox {
	if size <= 0 {
		size = defaultOutboxSize
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &outbox{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		queue:     make(chan outboxItem, size),
		drained:   make(chan struct{}),
		pending:   make(map[string]pendingEnvelope),
		ctx:       ctx,
		cancel:    cancel,
	}
	go o.drain()
	return o
}

// coalesceKey returns the key under which only the newest envelope matters
func coalesceKey(env models.Envelope) (string, bool) {
	switch env.Type {
	case models.MessageStatistics, models.MessageSiteStatistics, models.MessageProgress:
		return string(env.Type) + "/" + string(env.Role), true
	default:
		return "", false
	}
}

func (o *outbox) enqueue(env models.Envelope) {
	o.closeMu.RLock()
	defer o.closeMu.RUnlock()
	if o.closed {
		return
	}

	if key, ok := coalesceKey(env); ok {
		o.pendingMu.Lock()
		select {
		case o.queue <- outboxItem{env: env}:
			// a queued snapshot supersedes a parked one
			delete(o.pending, key)
		default:
			o.seq++
			o.pending[key] = pendingEnvelope{seq: o.seq, env: env}
			if n := o.coalesced.Add(1); n == 1 || n%500 == 0 {
				o.logger.Warn().
					Int64("coalesced", n).
					Str("type", string(env.Type)).
					Msg("Publish queue full, keeping newest snapshot only")
			}
		}
		o.pendingMu.Unlock()
		return
	}

	select {
	case o.queue <- outboxItem{env: env}:
	case <-o.ctx.Done():
	}
}

// flush waits until everything enqueued before the call has been published
func (o *outbox) flush(ctx context.Context) error {
	barrier := make(chan struct{})

	o.closeMu.RLock()
	if o.closed {
		o.closeMu.RUnlock()
		return nil
	}
	select {
	case o.queue <- outboxItem{barrier: barrier}:
	case <-ctx.Done():
		o.closeMu.RUnlock()
		return ctx.Err()
	}
	o.closeMu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting envelopes and waits for the queue to drain. When ctx
// expires first the remaining envelopes are discarded.
func (o *outbox) close(ctx context.Context) error {
	o.closeMu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.closeMu.Unlock()

	select {
	case <-o.drained:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-o.drained
		return ctx.Err()
	}
}

func (o *outbox) drain() {
	defer close(o.drained)

	for item := range o.queue {
		if item.barrier != nil {
			o.publishPending()
			close(item.barrier)
			continue
		}
		o.publish(item.env)
		if len(o.queue) == 0 {
			o.publishPending()
		}
	}
	o.publishPending()
}

func (o *outbox) publishPending() {
	o.pendingMu.Lock()
	if len(o.pending) == 0 {
		o.pendingMu.Unlock()
		return
	}
	parked := make([]pendingEnvelope, 0, len(o.pending))
	for _, p := range o.pending {
		parked = append(parked, p)
	}
	o.pending = make(map[string]pendingEnvelope)
	o.pendingMu.Unlock()

	sort.Slice(parked, func(a, b int) bool { return parked[a].seq < parked[b].seq })
	for _, p := range parked {
		o.publish(p.env)
	}
}

func (o *outbox) publish(env models.Envelope) {
	if o.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	if err := o.publisher.Publish(ctx, env); err != nil {
		o.logger.Warn().Err(err).
			Str("type", string(env.Type)).
			Str("camera_role", string(env.Role)).
			Msg("Failed to publish message")
	}
}
