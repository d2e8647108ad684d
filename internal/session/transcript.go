// Package session is the client side of a conversation: an append-only
// transcript and the controller that reconciles it with server responses.
package session

import (
	"errors"
	"sync"
)

// Speaker identifies who an entry is attributed to.
type Speaker int

const (
	SpeakerCustomer Speaker = iota + 1
	SpeakerAssistant
)

func (s Speaker) String() string {
	switch s {
	case SpeakerCustomer:
		return "customer"
	case SpeakerAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Entry is one line of the transcript. Sequence numbers start at 1 and are
// never reused.
type Entry struct {
	Sequence uint64
	Speaker  Speaker
	Text     string
	// Provisional marks a placeholder that will be replaced in place.
	Provisional bool
	// Status is set on the final entry of an upload turn.
	Status string
}

var (
	ErrUnknownEntry    = errors.New("transcript entry not found")
	ErrAlreadyResolved = errors.New("transcript entry is not provisional")
)

// Transcript serializes every mutation. The only permitted mutations are
// appending and resolving a provisional entry exactly once.
type Transcript struct {
	mu       sync.Mutex
	entries  []Entry
	next     uint64
	onChange func(Entry)
}

// NewTranscript creates an empty transcript. onChange, if set, is called
// with every appended or resolved entry while the transcript is locked, in
// mutation order; it must not call back into the transcript.
func NewTranscript(onChange func(Entry)) *Transcript {
	return &Transcript{next: 1, onChange: onChange}
}

// Append adds a final entry.
func (t *Transcript) Append(speaker Speaker, text string) Entry {
	return t.add(Entry{Speaker: speaker, Text: text})
}

// AppendStatus adds a final entry carrying an outcome status.
func (t *Transcript) AppendStatus(speaker Speaker, text, status string) Entry {
	return t.add(Entry{Speaker: speaker, Text: text, Status: status})
}

// Placeholder adds a provisional entry to be resolved later.
func (t *Transcript) Placeholder(speaker Speaker, text string) Entry {
	return t.add(Entry{Speaker: speaker, Text: text, Provisional: true})
}

// Exchange appends a customer entry and the assistant placeholder that
// answers it at consecutive sequence numbers.
func (t *Transcript) Exchange(text, placeholder string) (Entry, Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	customer := t.addLocked(Entry{Speaker: SpeakerCustomer, Text: text})
	pending := t.addLocked(Entry{Speaker: SpeakerAssistant, Text: placeholder, Provisional: true})
	return customer, pending
}

func (t *Transcript) add(e Entry) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(e)
}

func (t *Transcript) addLocked(e Entry) Entry {
	e.Sequence = t.next
	t.next++
	t.entries = append(t.entries, e)
	t.notify(e)
	return e
}

// Resolve replaces the text of a provisional entry in place.
func (t *Transcript) Resolve(sequence uint64, text string) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index(sequence)
	if !ok {
		return Entry{}, ErrUnknownEntry
	}
	if !t.entries[i].Provisional {
		return Entry{}, ErrAlreadyResolved
	}
	t.entries[i].Text = text
	t.entries[i].Provisional = false
	t.notify(t.entries[i])
	return t.entries[i], nil
}

// index finds an entry by sequence. Entries are sorted by sequence.
func (t *Transcript) index(sequence uint64) (int, bool) {
	lo, hi := 0, len(t.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case t.entries[mid].Sequence == sequence:
			return mid, true
		case t.entries[mid].Sequence < sequence:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

func (t *Transcript) notify(e Entry) {
	if t.onChange != nil {
		t.onChange(e)
	}
}

// Entries returns a copy of the transcript in sequence order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
