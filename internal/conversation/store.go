package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/triage_inbox/backend/internal/models"
	"github.com/triage_inbox/backend/internal/service"
)

var ErrAlreadyLoaded = errors.New("conversation store already holds messages")

// Store holds the message set and the profile set for one operator session.
// Every operation runs under a single lock.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	profiles map[string]models.UserProfile

	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(opts ...Option) *Store {
	s := &Store{
		profiles: map[string]models.UserProfile{},
		now:      time.Now,
		newID:    func() string { return "msg_" + ulid.Make().String() },
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds an empty store with an ingested batch and synthesizes a profile
// for every customer in it. It fails with ErrAlreadyLoaded once the store
// holds any message; later batches go through Import.
func (s *Store) Load(messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) > 0 {
		return ErrAlreadyLoaded
	}
	s.messages = make([]models.Message, len(messages))
	copy(s.messages, messages)
	for _, m := range s.messages {
		s.ensureProfile(m.UserID)
	}
	s.logger.Info().
		Int("messages", len(s.messages)).
		Int("profiles", len(s.profiles)).
		Msg("conversation store loaded")
	return nil
}

// Import adds a parsed batch in front of the existing messages, keeping the
// batch order. Each imported message gets a fresh store id, so parser line
// ids never collide with messages already held. Live state is untouched.
func (s *Store) Import(messages []models.Message) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]models.Message, len(messages))
	for i, m := range messages {
		m.ID = s.newID()
		batch[i] = m
		s.ensureProfile(m.UserID)
	}
	s.messages = append(batch, s.messages...)
	s.logger.Info().
		Int("imported", len(batch)).
		Int("messages", len(s.messages)).
		Int("profiles", len(s.profiles)).
		Msg("conversation store imported batch")

	out := make([]models.Message, len(batch))
	copy(out, batch)
	return out
}

// Append records a new message at the front of the message set.
func (s *Store) Append(userID, body string, direction models.Direction, agentID *string) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := 0
	if direction == models.DirectionInbound {
		score = service.ScoreUrgency(body)
	}
	var agent *string
	if agentID != nil {
		v := *agentID
		agent = &v
	}
	msg := models.Message{
		ID:           s.newID(),
		UserID:       userID,
		Timestamp:    s.now().UTC().Format(models.TimestampLayout),
		Body:         body,
		Direction:    direction,
		UrgencyScore: score,
		IsRead:       direction == models.DirectionOutbound,
		Status:       models.StatusOpen,
		AgentID:      agent,
	}
	s.messages = append([]models.Message{msg}, s.messages...)
	s.ensureProfile(userID)
	return msg
}

// MarkAsRead reports whether the message flipped from unread to read.
func (s *Store) MarkAsRead(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(messageID)
	if i < 0 || s.messages[i].IsRead {
		return false
	}
	s.messages[i].IsRead = true
	return true
}

// ResolveMessage reports whether the message moved from open to resolved.
func (s *Store) ResolveMessage(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(messageID)
	if i < 0 || s.messages[i].Status != models.StatusOpen {
		return false
	}
	s.messages[i].Status = models.StatusResolved
	return true
}

// ResolveConversation resolves every open message of the customer and returns
// how many changed.
func (s *Store) ResolveConversation(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.messages {
		if s.messages[i].UserID == userID && s.messages[i].Status == models.StatusOpen {
			s.messages[i].Status = models.StatusResolved
			changed++
		}
	}
	return changed
}

// Snapshot returns copies of the current state, safe to read without the lock.
func (s *Store) Snapshot() ([]models.Message, map[string]models.UserProfile) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]models.Message, len(s.messages))
	copy(msgs, s.messages)
	profiles := make(map[string]models.UserProfile, len(s.profiles))
	for k, v := range s.profiles {
		profiles[k] = v
	}
	return msgs, profiles
}

func (s *Store) Profile(userID string) (models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// ensureProfile must be called with mu held.
func (s *Store) ensureProfile(userID string) {
	if _, ok := s.profiles[userID]; ok {
		return
	}
	s.profiles[userID] = service.SynthesizeProfile(userID)
}

func (s *Store) indexOf(messageID string) int {
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}
