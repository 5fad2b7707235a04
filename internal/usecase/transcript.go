package usecase

import (
	"strconv"
	"sync"

	"dinner-agent/internal/domain"
)

// Transcript is the ordered list of chat entries. Entries are only appended;
// the single exception is a request cycle dropping its own pending entry.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.Message
	seq      int
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(role domain.Role, text, requestID string) domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	msg := domain.Message{
		ID:        "msg-" + strconv.Itoa(t.seq),
		Role:      role,
		Text:      text,
		RequestID: requestID,
	}
	t.messages = append(t.messages, msg)
	return msg
}

// RemovePending drops the pending entry with the given ID. Entries of any
// other role are never removed.
func (t *Transcript) RemovePending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, msg := range t.messages {
		if msg.ID != id {
			continue
		}
		if msg.Role != domain.RolePending {
			return false
		}
		t.messages = append(t.messages[:i], t.messages[i+1:]...)
		return true
	}
	return false
}

// Messages returns a copy of the entries in display order.
func (t *Transcript) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Pending reports how many requests are still outstanding.
func (t *Transcript) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, msg := range t.messages {
		if msg.Role == domain.RolePending {
			n++
		}
	}
	return n
}
