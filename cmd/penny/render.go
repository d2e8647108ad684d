package main

import (
	"fmt"
	"io"

	"penny/internal/chat"
	"penny/internal/session"
)

// printer writes transcript changes as they happen. Placeholders are
// shown once and their resolution is printed as a new line unless the text
// did not change. Calls are serialized by the transcript.
func printer(w io.Writer) func(session.Entry) {
	pending := map[uint64]string{}
	return func(e session.Entry) {
		if e.Speaker == session.SpeakerCustomer {
			return
		}
		if text, ok := pending[e.Sequence]; ok {
			delete(pending, e.Sequence)
			if text == e.Text {
				return
			}
		}
		if e.Provisional {
			pending[e.Sequence] = e.Text
		}
		switch {
		case e.Provisional:
			fmt.Fprintf(w, "  (%s)\n", e.Text)
		case e.Status != "":
			fmt.Fprintf(w, "%s [%s]: %s\n", chat.AssistantName, e.Status, e.Text)
		default:
			fmt.Fprintf(w, "%s: %s\n", chat.AssistantName, e.Text)
		}
	}
}
