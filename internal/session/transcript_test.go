package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptSequencesAreContiguous(t *testing.T) {
	tr := NewTranscript(nil)
	a := tr.Append(SpeakerAssistant, "hello")
	c, p := tr.Exchange("hi", "typing")
	s := tr.AppendStatus(SpeakerAssistant, "done", "completed")

	assert.Equal(t, []uint64{1, 2, 3, 4}, []uint64{a.Sequence, c.Sequence, p.Sequence, s.Sequence})
	assert.Equal(t, SpeakerCustomer, c.Speaker)
	assert.True(t, p.Provisional)
	assert.Equal(t, "completed", s.Status)
	assert.Equal(t, 4, tr.Len())
}

func TestTranscriptResolveReplacesInPlace(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Append(SpeakerAssistant, "hello")
	p := tr.Placeholder(SpeakerAssistant, "typing")
	tr.Append(SpeakerCustomer, "later")

	got, err := tr.Resolve(p.Sequence, "answer")
	require.NoError(t, err)
	assert.Equal(t, p.Sequence, got.Sequence)
	assert.False(t, got.Provisional)

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "answer", entries[1].Text)
	assert.Equal(t, "later", entries[2].Text)
}

func TestTranscriptResolveOnlyOnce(t *testing.T) {
	tr := NewTranscript(nil)
	p := tr.Placeholder(SpeakerAssistant, "typing")
	final := tr.Append(SpeakerAssistant, "final")

	_, err := tr.Resolve(p.Sequence, "first")
	require.NoError(t, err)
	_, err = tr.Resolve(p.Sequence, "second")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = tr.Resolve(final.Sequence, "rewrite")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = tr.Resolve(99, "missing")
	assert.ErrorIs(t, err, ErrUnknownEntry)

	assert.Equal(t, "first", tr.Entries()[0].Text)
}

func TestTranscriptEntriesIsACopy(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Append(SpeakerCustomer, "hi")

	entries := tr.Entries()
	entries[0].Text = "changed"
	assert.Equal(t, "hi", tr.Entries()[0].Text)
}

func TestTranscriptNotifiesInMutationOrder(t *testing.T) {
	var seen []Entry
	tr := NewTranscript(func(e Entry) { seen = append(seen, e) })

	_, p := tr.Exchange("question", "typing")
	_, err := tr.Resolve(p.Sequence, "answer")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, "question", seen[0].Text)
	assert.True(t, seen[1].Provisional)
	assert.Equal(t, "answer", seen[2].Text)
	assert.False(t, seen[2].Provisional)
}

func TestTranscriptConcurrentExchangesStayPaired(t *testing.T) {
	tr := NewTranscript(nil)
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			tr.Exchange("q", "typing")
		})
	}
	wg.Wait()

	entries := tr.Entries()
	require.Len(t, entries, 100)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Sequence)
		if i%2 == 0 {
			assert.Equal(t, SpeakerCustomer, e.Speaker)
		} else {
			assert.True(t, e.Provisional)
		}
	}
}

func TestSpeakerString(t *testing.T) {
	assert.Equal(t, "customer", SpeakerCustomer.String())
	assert.Equal(t, "assistant", SpeakerAssistant.String())
	assert.Equal(t, "unknown", Speaker(0).String())
}
