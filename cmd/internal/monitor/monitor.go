// Package monitor tracks whether a user session is active and reports it to
// the presence API through periodic and edge-triggered heartbeats.
package monitor

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/utils/retry"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

const finalHeartbeatTimeout = 5 * time.Second

// Transport delivers one heartbeat and returns the server's verdict.
type Transport interface {
	Send(ctx context.Context, payload *contract.HeartbeatRequest) (*contract.HeartbeatResponse, error)
}

// Beaconer is an optional Transport capability: a non-blocking send that
// survives the host going away. SendBeacon returns false when the payload
// could not be queued.
type Beaconer interface {
	SendBeacon(payload *contract.HeartbeatRequest) bool
}

type State int

const (
	StateStarting State = iota
	StateActive
	StateInactive
	StateHidden
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateHidden:
		return "hidden"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// HeartbeatOptions tweak a single heartbeat.
type HeartbeatOptions struct {
	// Active overrides the activity derived from the last input.
	Active      *bool
	PageVisible bool
	PageUnload  bool
}

type Option func(*Monitor)

// WithClock replaces time.Now, activity math only.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// Monitor is owned by a single session. It subscribes to the host's events
// on Start and releases everything on Stop.
type Monitor struct {
	userID    int64
	cfg       Config
	transport Transport
	source    EventSource
	policy    retry.Policy
	now       func() time.Time

	mu            sync.Mutex
	started       bool
	stopped       bool
	sessionID     string
	lastActivity  time.Time
	lastHeartbeat time.Time
	pageHidden    bool
	retryCount    int

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

func New(userID int64, cfg Config, transport Transport, source EventSource, opts ...Option) *Monitor {
	cfg = cfg.Normalize()
	m := &Monitor{
		userID:    userID,
		cfg:       cfg,
		transport: transport,
		source:    source,
		policy:    retry.Exponential(cfg.MaxRetries, cfg.RetryDelay),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins monitoring and sends the first heartbeat. A disabled monitor
// or one without a user simply does not start, Start then returns false.
func (m *Monitor) Start() bool {
	if !m.cfg.Enabled || m.userID <= 0 {
		log.Debugf("presence monitor not started (enabled=%t, user=%d)", m.cfg.Enabled, m.userID)
		return false
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return false
	}

	now := m.now()
	m.started = true
	m.sessionID = uuid.NewString()
	m.lastActivity = now
	m.lastHeartbeat = now
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.wg.Add(1)
	m.mu.Unlock()

	m.unsubscribe = m.source.Subscribe(m.handleEvent)
	go m.loop()

	log.Infof("presence monitor started for user %d (session %s)", m.userID, m.sessionID)
	m.dispatch(HeartbeatOptions{Active: boolPtr(true)})
	return true
}

// Stop cancels the periodic loop and every pending retry, removes the event
// subscription and sends one last inactive heartbeat. Calling it twice is
// harmless.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.unsubscribe()
	m.cancel()
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), finalHeartbeatTimeout)
	defer cancel()

	if _, err := m.SendHeartbeat(ctx, HeartbeatOptions{Active: boolPtr(false)}); err != nil {
		log.Warnf("failed to send final heartbeat for session %s: %v", m.sessionID, err)
	}
	log.Infof("presence monitor stopped for user %d (session %s)", m.userID, m.sessionID)
}

// SendHeartbeat builds a payload from the current state and delivers it,
// retrying with exponential backoff. Once the retries are exhausted the
// failure is logged and returned, nothing panics.
func (m *Monitor) SendHeartbeat(ctx context.Context, opts HeartbeatOptions) (*contract.HeartbeatResponse, error) {
	return m.deliver(ctx, m.buildPayload(opts))
}

func (m *Monitor) deliver(ctx context.Context, payload *contract.HeartbeatRequest) (*contract.HeartbeatResponse, error) {
	var resp *contract.HeartbeatResponse
	err := retry.Do(ctx, m.policy, func(ctx context.Context) error {
		r, err := m.transport.Send(ctx, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, func(n int, delay time.Duration, err error) {
		m.setRetryCount(n)
		log.Warnf("heartbeat failed (%v), retry %d/%d in %s", err, n, m.policy.MaxRetries, delay)
	})

	if err != nil {
		m.setRetryCount(0)
		if errors.Is(err, context.Canceled) {
			log.Debugf("heartbeat for session %s cancelled", payload.SessionID)
		} else {
			log.Warnf("abandoning heartbeat for session %s: %v", payload.SessionID, err)
		}
		return nil, err
	}

	m.mu.Lock()
	m.lastHeartbeat = m.now()
	m.retryCount = 0
	m.mu.Unlock()

	if resp != nil && resp.StatusChanged {
		log.Infof("presence of user %d changed %s -> %s", m.userID, resp.PreviousStatus, resp.CurrentStatus)
	}
	return resp, nil
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !m.started:
		return StateStarting
	case m.stopped:
		return StateStopped
	case m.pageHidden:
		return StateHidden
	case m.activeLocked(m.now()):
		return StateActive
	default:
		return StateInactive
	}
}

// IsActive is derived from the last recorded activity on every call.
func (m *Monitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(m.now())
}

func (m *Monitor) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

func (m *Monitor) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCount
}

func (m *Monitor) LastHeartbeat() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeartbeat
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	m.mu.Lock()
	hidden := m.pageHidden
	m.mu.Unlock()

	// The hidden transition already reported itself.
	if hidden {
		return
	}
	_, _ = m.SendHeartbeat(m.ctx, HeartbeatOptions{})
}

func (m *Monitor) handleEvent(evt Event) {
	switch evt.Kind {
	case EventInput:
		m.onInput(evt.Input)
	case EventVisibility:
		m.onVisibility(evt.Hidden)
	case EventUnload:
		m.onUnload()
	}
}

func (m *Monitor) onInput(kind InputKind) {
	if !kind.Qualifies() {
		return
	}

	m.mu.Lock()
	if !m.runningLocked() {
		m.mu.Unlock()
		return
	}
	now := m.now()
	wasActive := m.activeLocked(now)
	m.lastActivity = now
	hidden := m.pageHidden
	m.mu.Unlock()

	if !wasActive && !hidden {
		log.Debugf("session %s reactivated by %s", m.sessionID, kind)
		m.dispatch(HeartbeatOptions{Active: boolPtr(true)})
	}
}

func (m *Monitor) onVisibility(hidden bool) {
	m.mu.Lock()
	if !m.runningLocked() || m.pageHidden == hidden {
		m.mu.Unlock()
		return
	}
	m.pageHidden = hidden
	if !hidden {
		m.lastActivity = m.now()
	}
	m.mu.Unlock()

	if hidden {
		m.dispatch(HeartbeatOptions{Active: boolPtr(false)})
		return
	}
	m.dispatch(HeartbeatOptions{Active: boolPtr(true), PageVisible: true})
}

// onUnload hands a final inactive signal to the beacon transport, or falls
// back to a single ordinary send when the host has none.
func (m *Monitor) onUnload() {
	m.mu.Lock()
	running := m.runningLocked()
	m.mu.Unlock()
	if !running {
		return
	}

	payload := m.buildPayload(HeartbeatOptions{Active: boolPtr(false), PageUnload: true})
	if b, ok := m.transport.(Beaconer); ok && b.SendBeacon(payload) {
		log.Debugf("unload beacon queued for session %s", payload.SessionID)
		return
	}

	// outlives Stop, hosts usually stop right after an unload
	m.goTracked(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalHeartbeatTimeout)
		defer cancel()

		if _, err := m.transport.Send(ctx, payload); err != nil {
			log.Warnf("unload heartbeat for session %s failed: %v", payload.SessionID, err)
		}
	})
}

// dispatch snapshots the state now and delivers it off the caller's
// goroutine. Overlapping sends are fine, the server keeps the last write.
func (m *Monitor) dispatch(opts HeartbeatOptions) {
	payload := m.buildPayload(opts)
	m.goTracked(func(ctx context.Context) {
		_, _ = m.deliver(ctx, payload)
	})
}

func (m *Monitor) goTracked(fn func(ctx context.Context)) {
	m.mu.Lock()
	if !m.runningLocked() {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	ctx := m.ctx
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		fn(ctx)
	}()
}

func (m *Monitor) buildPayload(opts HeartbeatOptions) *contract.HeartbeatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sinceActivity := now.Sub(m.lastActivity)

	isActive := sinceActivity < m.cfg.ActivityTimeout
	if opts.Active != nil {
		isActive = *opts.Active
	}

	return &contract.HeartbeatRequest{
		UserID:       m.userID,
		SessionID:    m.sessionID,
		IsActive:     boolPtr(isActive),
		PageHidden:   m.pageHidden,
		PageVisible:  opts.PageVisible,
		PageUnload:   opts.PageUnload,
		LastActivity: m.lastActivity.UnixMilli(),
		Metadata: &contract.HeartbeatMetadata{
			UserAgent:            m.cfg.UserAgent,
			PageTitle:            m.cfg.PageTitle,
			SecondsSinceActivity: int64(sinceActivity / time.Second),
			HeartbeatIntervalMs:  m.cfg.HeartbeatInterval.Milliseconds(),
		},
	}
}

func (m *Monitor) setRetryCount(n int) {
	m.mu.Lock()
	m.retryCount = n
	m.mu.Unlock()
}

func (m *Monitor) activeLocked(now time.Time) bool {
	return now.Sub(m.lastActivity) < m.cfg.ActivityTimeout
}

func (m *Monitor) runningLocked() bool {
	return m.started && !m.stopped
}

func boolPtr(b bool) *bool {
	return &b
}
