package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerAvatar Speaker = "avatar"
)

type Entry struct {
	ID        string    `json:"id"`
	From      Speaker   `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the append-only record of one conversation. Entries keep
// strictly increasing timestamps; an entry arriving with a clock that went
// backwards is bumped forward instead of reordered.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(from Speaker, text string, at time.Time) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.entries); n > 0 && !at.After(t.entries[n-1].Timestamp) {
		at = t.entries[n-1].Timestamp.Add(time.Millisecond)
	}

	entry := Entry{ID: uuid.New().String(), From: from, Text: text, Timestamp: at}
	t.entries = append(t.entries, entry)
	return entry
}

func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
