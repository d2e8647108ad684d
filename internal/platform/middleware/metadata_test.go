package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"penny/pkg/requestcontext"
)

type MetadataSuite struct {
	suite.Suite
}

func TestMetadataSuite(t *testing.T) {
	suite.Run(t, new(MetadataSuite))
}

func (s *MetadataSuite) TestUserAgentParsing() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		result := ParseUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.NotContains(result, "  ")
	})

	s.Run("safari on iphone includes platform", func() {
		result := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.Contains(result, "iPhone")
	})

	s.Run("result has no surrounding whitespace", func() {
		result := ParseUserAgent("Unknown/1.0")
		s.Equal(strings.TrimSpace(result), result)
		s.Contains(result, " on ")
	})
}

func (s *MetadataSuite) TestClientIP() {
	s.Run("first forwarded address wins", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		s.Equal("203.0.113.7", ClientIPFromRequest(r))
	})

	s.Run("real ip header", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", " 198.51.100.2 ")
		s.Equal("198.51.100.2", ClientIPFromRequest(r))
	})

	s.Run("remote addr without port", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "[::1]:5050"
		s.Equal("::1", ClientIPFromRequest(r))
	})
}

func (s *MetadataSuite) TestMiddlewareInjectsContext() {
	var ip, device, requestID string
	h := RequestID(ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		device = requestcontext.Device(r.Context())
		requestID = requestcontext.RequestID(r.Context())
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "192.0.2.1")
	r.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	s.Equal("192.0.2.1", ip)
	s.Equal("Unknown Device", device)
	s.Equal("abc-123", requestID)
	s.Equal("abc-123", w.Header().Get(RequestIDHeader))
}
