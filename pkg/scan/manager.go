package scan

import (
	"context"
	"errors"
	"sync"
)

// ErrScanning is returned when a scan is started while another one is active.
var ErrScanning = errors.New("scan in progress")

// A Manager runs scan sessions against a scanner and remembers which devices
// have already been delivered. At most one session is active at a time.
type Manager struct {
	scanner Scanner
	session *session
	seen    map[string]struct{}
	mutex   sync.Mutex
}

// NewManager creates a new manager using the provided scanner. The provided
// context bounds the manager's lifetime: once it is cancelled, any active
// session is stopped and its stream closed.
func NewManager(ctx context.Context, scanner Scanner) *Manager {
	// create manager
	m := &Manager{
		scanner: scanner,
		seen:    map[string]struct{}{},
	}

	// bind lifecycle
	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return m
}

// Start begins a new scan session and returns its event stream. Devices are
// delivered in callback order, at most once per identity, with the stream
// exerting backpressure on the scanner once the buffer is full. Cancelling the
// provided context stops the session. Starting while another session is active
// returns ErrScanning.
func (m *Manager) Start(ctx context.Context, filters []Filter, settings Settings) (<-chan Event, error) {
	// ensure defaults
	settings.Validate()

	// acquire mutex
	m.mutex.Lock()

	// check session
	if m.session != nil {
		m.mutex.Unlock()
		return nil, ErrScanning
	}

	// create session
	s := &session{
		manager: m,
		events:  make(chan Event, settings.Buffer),
		done:    make(chan struct{}),
	}

	// set session
	m.session = s

	// release mutex
	m.mutex.Unlock()

	// register with scanner
	err := m.scanner.Start(filters, settings, s)
	if err != nil {
		m.detach(s)
		return nil, err
	}

	// stop session once the context is cancelled
	go func() {
		select {
		case <-ctx.Done():
			m.stop(s)
		case <-s.done:
		}
	}()

	return s.events, nil
}

// Stop ends the active session: the scanner registration is removed, the seen
// set is cleared and the stream is closed. It is a no-op without a session.
func (m *Manager) Stop() {
	// get session
	m.mutex.Lock()
	s := m.session
	m.mutex.Unlock()

	// stop if active
	if s != nil {
		m.stop(s)
	}
}

// ClearSeen forgets all previously delivered devices, allowing them to be
// delivered again. It may be called with or without an active session.
func (m *Manager) ClearSeen() {
	// acquire mutex
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// reset seen set
	m.seen = map[string]struct{}{}
}

// Scanning returns whether a session is currently active.
func (m *Manager) Scanning() bool {
	// acquire mutex
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.session != nil
}

func (m *Manager) stop(s *session) {
	// detach session
	m.detach(s)

	// close stream
	s.close()

	// remove registration
	_ = m.scanner.Stop(s)
}

// detach removes the session and resets the seen set if it is still current.
func (m *Manager) detach(s *session) {
	// acquire mutex
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// clear if current
	if m.session == s {
		m.session = nil
		m.seen = map[string]struct{}{}
	}
}

// observe returns whether the identity has been seen for the first time.
func (m *Manager) observe(identity string) bool {
	// acquire mutex
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// check set
	if _, ok := m.seen[identity]; ok {
		return false
	}

	// mark identity
	m.seen[identity] = struct{}{}

	return true
}

// A session bridges the callbacks of one scan into its event stream.
type session struct {
	manager *Manager
	events  chan Event
	done    chan struct{}
	once    sync.Once
	mutex   sync.Mutex
}

// OnResults implements the Callback interface. Batches are expanded and
// delivered one result at a time, preserving their order.
func (s *session) OnResults(results ...Result) {
	// serialize with close
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// go through all results
	for _, result := range results {
		// bail out if the stream is gone
		select {
		case <-s.done:
			return
		default:
		}

		// drop already delivered devices
		if !s.manager.observe(result.Identity()) {
			continue
		}

		// deliver result, blocking while the stream is full
		select {
		case s.events <- Event{Device: result}:
		case <-s.done:
			return
		}
	}
}

// OnFailure implements the Callback interface. The failure is delivered as a
// final event before the stream is closed, unless the session has already
// been stopped.
func (s *session) OnFailure(code int) {
	// detach session
	s.manager.detach(s)

	// deliver failure
	s.mutex.Lock()
	select {
	case s.events <- Event{Err: &Error{Code: code}}:
	case <-s.done:
		s.mutex.Unlock()
		return
	}
	s.mutex.Unlock()

	// close stream
	s.close()
}

// close terminates the stream. It is idempotent and safe to call concurrently
// with deliveries.
func (s *session) close() {
	s.once.Do(func() {
		// unblock and fence off pending deliveries
		close(s.done)

		// await in-flight callback
		s.mutex.Lock()
		defer s.mutex.Unlock()

		// close stream
		close(s.events)
	})
}
