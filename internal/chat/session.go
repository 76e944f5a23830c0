package chat

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"chatd/internal/prompt"
)

// session is the turn sequence of one conversation.
type session struct {
	mu      sync.Mutex
	turns   []prompt.Turn
	updated time.Time
}

func (s *session) snapshot() []prompt.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]prompt.Turn(nil), s.turns...)
}

// record appends a completed exchange, keeping at most max turns when max > 0.
func (s *session) record(max int, turns ...prompt.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	if max > 0 && len(s.turns) > max {
		s.turns = append([]prompt.Turn(nil), s.turns[len(s.turns)-max:]...)
	}
	s.updated = time.Now()
}

// sessionStore indexes sessions by id.
type sessionStore struct {
	m *xsync.MapOf[string, *session]
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: xsync.NewMapOf[string, *session]()}
}

// get returns the session for id, creating it when absent.
func (s *sessionStore) get(id string) *session {
	sess, _ := s.m.LoadOrCompute(id, func() *session { return &session{updated: time.Now()} })
	return sess
}

// turns returns a copy of the stored turns for id, or nil.
func (s *sessionStore) turns(id string) []prompt.Turn {
	if sess, ok := s.m.Load(id); ok {
		return sess.snapshot()
	}
	return nil
}

func (s *sessionStore) delete(id string) bool {
	_, ok := s.m.LoadAndDelete(id)
	return ok
}

func (s *sessionStore) len() int { return s.m.Size() }

// expire drops sessions idle since before cutoff and returns how many.
func (s *sessionStore) expire(cutoff time.Time) int {
	n := 0
	s.m.Range(func(id string, sess *session) bool {
		sess.mu.Lock()
		idle := sess.updated.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			s.m.Delete(id)
			n++
		}
		return true
	})
	return n
}
