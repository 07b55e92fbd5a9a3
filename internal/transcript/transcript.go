// Package transcript keeps the conversation log of a session and interprets
// the call outcome the backend sends at the end of a conversation.
//
// A log is an append-only sequence of [protocol.Message] values keyed by a
// session ID. [MemStore] keeps logs in process memory; the postgres
// subpackage persists them.
package transcript

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

// Sender is the party a message is attributed to when displayed.
type Sender string

const (
	SenderUser   Sender = "You"
	SenderBot    Sender = "Bot"
	SenderOutput Sender = "Output"
)

// SenderOf attributes a message type to a party. Speech recognition results
// belong to the user; synthesis and LLM timings to the bot.
func SenderOf(t protocol.MessageType) Sender {
	switch t {
	case protocol.TextSTT, protocol.TimestampSTT:
		return SenderUser
	case protocol.TextTTS, protocol.TimestampTTS, protocol.TimestampLLM:
		return SenderBot
	case protocol.TextOutput:
		return SenderOutput
	}
	return ""
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Store persists conversation logs.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds m to the end of the log of sessionID.
	Append(ctx context.Context, sessionID string, m protocol.Message) error

	// List returns the log of sessionID in append order. An unknown session
	// yields an empty slice.
	List(ctx context.Context, sessionID string) ([]protocol.Message, error)
}

// MemStore is an in-memory [Store].
type MemStore struct {
	mu   sync.Mutex
	logs map[string][]protocol.Message
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{logs: make(map[string][]protocol.Message)}
}

// Append implements [Store].
func (s *MemStore) Append(_ context.Context, sessionID string, m protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = append(s.logs[sessionID], m)
	return nil
}

// List implements [Store]. The returned slice is a copy.
func (s *MemStore) List(_ context.Context, sessionID string) ([]protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.logs[sessionID])
	if out == nil {
		out = []protocol.Message{}
	}
	return out, nil
}
