package testutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// FilePart is one field of a multipart request. A part with no Filename is
// written as a plain form value.
type FilePart struct {
	Field    string
	Filename string
	Content  []byte
}

// FieldPart is a plain form value.
func FieldPart(field, value string) FilePart {
	return FilePart{Field: field, Content: []byte(value)}
}

// NewMultipartRequest builds a multipart/form-data request from its parts.
func NewMultipartRequest(t *testing.T, method, path string, parts ...FilePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.Filename == "" {
			require.NoError(t, mw.WriteField(p.Field, string(p.Content)), "failed to write form field")
			continue
		}
		fw, err := mw.CreateFormFile(p.Field, p.Filename)
		require.NoError(t, err, "failed to create form file")
		_, err = fw.Write(p.Content)
		require.NoError(t, err, "failed to write form file")
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
