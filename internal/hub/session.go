package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const sendBuffer = 256

// Session is one live client connection. The transport layer drains Send and
// owns the underlying websocket; the hub and router only ever see Sessions.
type Session struct {
	ID        string
	Token     string // raw bearer captured at upgrade, may be empty
	Send      chan []byte
	Connected time.Time

	mu     sync.Mutex
	userID string
	done   chan struct{}
	once   sync.Once
}

func NewSession(token string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Token:     token,
		Send:      make(chan []byte, sendBuffer),
		Connected: time.Now().UTC(),
		done:      make(chan struct{}),
	}
}

// UserID returns the user currently bound to this session, "" if unbound.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) setUserID(id string) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// Close signals the writer to stop. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed when the session has been shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Deliver queues a frame for the client, dropping it when the client is too
// slow to drain its buffer.
func (s *Session) Deliver(frame []byte) {
	select {
	case <-s.done:
	case s.Send <- frame:
	default:
	}
}
