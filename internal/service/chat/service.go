package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// feedBuffer bounds undelivered messages per subscriber. A subscriber that
// stops draining misses messages rather than stalling posters.
const feedBuffer = 16

// Subscription is one observer's live message feed.
type Subscription struct {
	// C delivers posted messages in sequence order.
	C <-chan *domain.Message

	schoolID string
	ch       chan *domain.Message
	once     sync.Once
}

// schoolRoom holds one school's message history and feed subscribers.
type schoolRoom struct {
	// mu serializes posts for this school.
	mu sync.Mutex
	// messages is the history in sequence order.
	messages []*domain.Message
	// lastSeq is the highest assigned sequence number.
	lastSeq uint64
	// subs holds the live feeds for this room.
	subs map[*Subscription]struct{}
}

// Service relays chat messages within a school. History lives in memory only;
// chat is ancillary and carries no durability guarantee.
type Service struct {
	// mu protects the room map.
	mu sync.RWMutex
	// rooms shards the relay by school.
	rooms map[string]*schoolRoom
}

// NewService creates an empty relay.
func NewService() *Service {
	return &Service{
		rooms: make(map[string]*schoolRoom),
	}
}

// Post appends a message to the session's school room and returns it with its
// assigned sequence.
func (s *Service) Post(_ context.Context, session *domain.Session, text string) (*domain.Message, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is required", domain.ErrValidation)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is required", domain.ErrValidation)
	}

	room := s.roomFor(session.SchoolID)

	room.mu.Lock()
	defer room.mu.Unlock()

	message := &domain.Message{
		SchoolID:   session.SchoolID,
		SenderRole: session.Role,
		Text:       text,
		Timestamp:  time.Now(),
		Sequence:   room.lastSeq + 1,
	}

	room.messages = append(room.messages, message)
	room.lastSeq = message.Sequence

	for sub := range room.subs {
		cloned := *message

		select {
		case sub.ch <- &cloned:
		default:
		}
	}

	cloned := *message

	return &cloned, nil
}

// Subscribe registers a live feed for the school's room. Delivery is
// best-effort: slow subscribers miss messages and catch up through List.
func (s *Service) Subscribe(schoolID string) *Subscription {
	ch := make(chan *domain.Message, feedBuffer)
	sub := &Subscription{
		C:        ch,
		ch:       ch,
		schoolID: schoolID,
	}

	room := s.roomFor(schoolID)

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.subs == nil {
		room.subs = make(map[*Subscription]struct{})
	}

	room.subs[sub] = struct{}{}

	return sub
}

// Unsubscribe removes the feed and closes its channel. Safe to call more than
// once.
func (s *Service) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	room := s.roomFor(sub.schoolID)

	room.mu.Lock()
	delete(room.subs, sub)
	room.mu.Unlock()

	// Closed only after removal, so Post never writes to a closed channel.
	sub.once.Do(func() {
		close(sub.ch)
	})
}

// List returns the school's messages with sequence greater than since,
// ascending.
func (s *Service) List(_ context.Context, schoolID string, since uint64) ([]*domain.Message, error) {
	room := s.roomFor(schoolID)

	room.mu.Lock()
	defer room.mu.Unlock()

	out := make([]*domain.Message, 0, len(room.messages))

	for _, message := range room.messages {
		if message.Sequence > since {
			cloned := *message
			out = append(out, &cloned)
		}
	}

	return out, nil
}

// roomFor returns the room for the school, creating it on first use.
func (s *Service) roomFor(schoolID string) *schoolRoom {
	s.mu.RLock()
	room, ok := s.rooms[schoolID]
	s.mu.RUnlock()

	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok = s.rooms[schoolID]
	if !ok {
		room = new(schoolRoom)
		s.rooms[schoolID] = room
	}

	return room
}
