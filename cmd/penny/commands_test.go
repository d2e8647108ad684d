package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny/internal/session"
)

func TestRunChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/":
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Hi, I'm Penny."})
		case "/question":
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "The minimum balance is $25."})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	in := strings.NewReader("What is the account minimum balance?\n\n/quit\n")
	err := runChat(context.Background(), Config{Server: srv.URL, Timeout: 5 * time.Second}, in, &out)
	require.NoError(t, err)

	assert.Equal(t,
		"Penny: Hi, I'm Penny.\n"+
			"  (Penny is typing...)\n"+
			"Penny: The minimum balance is $25.\n",
		out.String())
}

func TestPrinterSkipsUnchangedResolution(t *testing.T) {
	var out bytes.Buffer
	tr := session.NewTranscript(printer(&out))

	notice := tr.Placeholder(session.SpeakerAssistant, session.UploadNotice)
	_, err := tr.Resolve(notice.Sequence, notice.Text)
	require.NoError(t, err)
	tr.AppendStatus(session.SpeakerAssistant, "Verified.", "completed")

	assert.Equal(t,
		"  ("+session.UploadNotice+")\n"+
			"Penny [completed]: Verified.\n",
		out.String())
}

func TestReadUploadMissingFile(t *testing.T) {
	_, err := readUpload(Config{}, "/does/not/exist.jpg", "/does/not/exist.jpg")
	assert.ErrorContains(t, err, "read document")
}

func TestReadUploadCarriesDeclaredDetails(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "id.jpg")
	selfie := filepath.Join(dir, "me.jpg")
	require.NoError(t, os.WriteFile(doc, []byte("id"), 0o600))
	require.NoError(t, os.WriteFile(selfie, []byte("face"), 0o600))

	files, err := readUpload(Config{FirstName: "Jane", LastName: "Doe", AccountType: "savings"}, doc, selfie)

	require.NoError(t, err)
	assert.Equal(t, "id.jpg", files.DocumentName)
	assert.Equal(t, "Jane", files.FirstName)
	assert.Equal(t, "Doe", files.LastName)
	assert.Equal(t, "savings", files.AccountType)
}
