// Package chat 管理匿名问诊会话。会话只存在于进程内存里，
// 超过闲置时限即被清理，过期的会话 ID 等同于不存在。
package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// session pairs the shared state with its own lock so concurrent turns on
// one conversation serialize without blocking other sessions.
type session struct {
	mu   sync.Mutex
	data chat.Session
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	idleTimeout   time.Duration
	sweepInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewService bootstraps the in-memory session store and starts the idle
// sweeper. Call Close on shutdown to stop it.
func NewService(cfg config.SessionConfig) *Service {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}

	s := &Service{
		sessions:      make(map[string]*session),
		idleTimeout:   idle,
		sweepInterval: sweep,
		done:          make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops the idle sweeper.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Resolve returns a snapshot of the session for id, creating a fresh session
// when the id is empty, unknown, or past the idle timeout. resumed reports
// whether an existing conversation was continued.
func (s *Service) Resolve(sessionID string) (chat.Session, bool) {
	if sessionID != "" {
		s.mu.RLock()
		entry, ok := s.sessions[sessionID]
		s.mu.RUnlock()
		if ok {
			entry.mu.Lock()
			if s.alive(&entry.data) {
				snapshot := cloneSession(&entry.data)
				entry.mu.Unlock()
				return snapshot, true
			}
			entry.mu.Unlock()
		}
	}

	now := time.Now().UTC()
	fresh := &session{data: chat.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		State:        chat.StateNew,
	}}

	s.mu.Lock()
	s.sessions[fresh.data.ID] = fresh
	s.mu.Unlock()

	return cloneSession(&fresh.data), false
}

// AppendUserTurn commits an inbound patient message. The session becomes
// Active and remembers the detected language for follow-up turns.
func (s *Service) AppendUserTurn(sessionID, text, language string) (chat.Session, error) {
	return s.append(sessionID, chat.SpeakerUser, text, language)
}

// AppendAssistantTurn commits the reply, completing the exchange. The
// session settles back to Idle and its expiry clock restarts.
func (s *Service) AppendAssistantTurn(sessionID, text, language string) (chat.Session, error) {
	return s.append(sessionID, chat.SpeakerAssistant, text, language)
}

// Info returns a snapshot of the session including its turns.
func (s *Service) Info(sessionID string) (chat.Session, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !s.alive(&entry.data) {
		return chat.Session{}, ErrSessionNotFound
	}
	return cloneSession(&entry.data), nil
}

// Transcript returns a copy of the committed turns.
func (s *Service) Transcript(sessionID string) ([]chat.Turn, error) {
	info, err := s.Info(sessionID)
	if err != nil {
		return nil, err
	}
	return info.Turns, nil
}

// Count reports how many live sessions the store holds.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) append(sessionID, speaker, text, language string) (chat.Session, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !s.alive(&entry.data) {
		return chat.Session{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	entry.data.Turns = append(entry.data.Turns, chat.Turn{
		Speaker:   speaker,
		Text:      text,
		Language:  language,
		Timestamp: now,
	})
	entry.data.LastActiveAt = now

	switch speaker {
	case chat.SpeakerUser:
		entry.data.State = chat.StateActive
		if language != "" {
			entry.data.LastDetectedLanguage = language
		}
	case chat.SpeakerAssistant:
		entry.data.State = chat.StateIdle
	}

	return cloneSession(&entry.data), nil
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// alive reports whether the session may still be used. Callers hold the
// session lock.
func (s *Service) alive(data *chat.Session) bool {
	return data.State != chat.StateExpired && time.Since(data.LastActiveAt) < s.idleTimeout
}

func (s *Service) run() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep expires and drops sessions whose idle timeout passed. Marking the
// state before deleting lets goroutines that still hold the entry notice.
func (s *Service) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		entry.mu.Lock()
		if time.Since(entry.data.LastActiveAt) >= s.idleTimeout {
			entry.data.State = chat.StateExpired
			delete(s.sessions, id)
		}
		entry.mu.Unlock()
	}
}

// cloneSession copies the session and its turn slice so callers never share
// memory with the store.
func cloneSession(data *chat.Session) chat.Session {
	snapshot := *data
	if len(data.Turns) > 0 {
		snapshot.Turns = make([]chat.Turn, len(data.Turns))
		copy(snapshot.Turns, data.Turns)
	}
	return snapshot
}
