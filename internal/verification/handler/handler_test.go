package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"penny/internal/account"
	jwttoken "penny/internal/jwt_token"
	"penny/internal/platform/middleware"
	"penny/internal/verification"
	"penny/internal/verification/handler/mocks"
	dErrors "penny/pkg/domain-errors"
	audit "penny/pkg/platform/audit"
	"penny/pkg/platform/audit/publisher"
	auditmemory "penny/pkg/platform/audit/store/memory"
	"penny/pkg/platform/sentinel"
	"penny/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	verifier *mocks.MockVerifier
	accounts *mocks.MockAccountLookup
	archive  *mocks.MockArchiver
	jwt      *jwttoken.JWTService
	audit    *auditmemory.InMemoryStore
	router   http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockVerifier(s.ctrl)
	s.accounts = mocks.NewMockAccountLookup(s.ctrl)
	s.archive = mocks.NewMockArchiver(s.ctrl)
	s.jwt = jwttoken.NewJWTService("test-signing-key", "penny", "penny-client")
	s.audit = auditmemory.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.verifier, s.accounts, s.jwt, s.jwt, logger, nil,
		WithArchiver(s.archive),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithMaxUploadBytes(1<<20),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) token(email string) string {
	token, err := s.jwt.GenerateSessionToken(uuid.New(), email, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) uploadRequest(parts ...testutil.FilePart) *http.Request {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/uploadDoc", parts...)
	return testutil.WithBearer(req, s.token("jane@example.com"))
}

func documentPart(field string) testutil.FilePart {
	return testutil.FilePart{Field: field, Filename: "id.jpg", Content: []byte("document-bytes")}
}

func selfiePart() testutil.FilePart {
	return testutil.FilePart{Field: "selfie", Filename: "me.jpg", Content: []byte("selfie-bytes")}
}

func (s *HandlerSuite) TestStartSession() {
	s.Run("new customer gets upload instructions", func() {
		s.accounts.EXPECT().Get(gomock.Any(), "jane@example.com").Return(account.Record{}, sentinel.ErrNotFound)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/session",
			map[string]string{"email": "  Jane@Example.com "}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[StartSessionResponse](s.T(), rr)
		s.Equal("jane@example.com", resp.Email)
		s.False(resp.AccountExists)
		s.Contains(resp.Message, "upload a photo of your ID document")

		claims, err := s.jwt.ValidateToken(resp.Token)
		s.Require().NoError(err)
		s.Equal("jane@example.com", claims.Email)
		s.NotEmpty(claims.SessionID)
	})

	s.Run("existing customer is welcomed back", func() {
		s.accounts.EXPECT().Get(gomock.Any(), "sam@example.com").Return(account.Record{Email: "sam@example.com"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/session",
			map[string]string{"email": "sam@example.com"}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[StartSessionResponse](s.T(), rr)
		s.True(resp.AccountExists)
		s.Contains(resp.Message, "Welcome back")
	})

	s.Run("lookup outage still starts a session", func() {
		s.accounts.EXPECT().Get(gomock.Any(), "kim@example.com").Return(account.Record{}, sentinel.ErrUnavailable)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/session",
			map[string]string{"email": "kim@example.com"}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[StartSessionResponse](s.T(), rr)
		s.False(resp.AccountExists)
	})

	s.Run("invalid email is rejected without lookup", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/session",
			map[string]string{"email": "not-an-email"}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	events, err := s.audit.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventSessionStarted))
	s.Contains(actions, string(audit.EventSessionDenied))
}

func (s *HandlerSuite) TestUploadRequiresSession() {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/uploadDoc", documentPart("document"), selfiePart())

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *HandlerSuite) TestUploadCompleted() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req verification.VerificationRequest) verification.Result {
			s.Equal([]byte("document-bytes"), req.DocumentImage)
			s.Equal([]byte("selfie-bytes"), req.FaceImage)
			s.Equal("jane@example.com", req.CustomerEmail)
			return verification.Result{Outcome: verification.OutcomeCompleted, AccountCreated: true}
		})

	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document"), selfiePart()))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[UploadResponse](s.T(), rr)
	s.Equal(verification.StatusCompleted, resp.Status)
	s.Contains(resp.Message, "new account has been created")
}

func (s *HandlerSuite) TestUploadAcceptsFileAlias() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req verification.VerificationRequest) verification.Result {
			s.Equal([]byte("document-bytes"), req.DocumentImage)
			return verification.Result{Outcome: verification.OutcomeCompleted}
		})

	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("file"), selfiePart()))

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestUploadPassesDeclaredDetails() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req verification.VerificationRequest) verification.Result {
			s.Equal(verification.DeclaredDetails{FirstName: "Jane", LastName: "Doe"}, req.Declared)
			s.Equal(account.TypeSavings, req.AccountType)
			return verification.Result{
				Outcome:         verification.OutcomeFailed,
				Reason:          verification.ReasonDetailsMismatch,
				MismatchedField: verification.FieldLastName,
			}
		})

	rr := testutil.DoRequest(s.router, s.uploadRequest(
		documentPart("document"), selfiePart(),
		testutil.FieldPart("first_name", "Jane"),
		testutil.FieldPart("last_name", "Doe"),
		testutil.FieldPart("account_type", "Savings"),
	))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[UploadResponse](s.T(), rr)
	s.Equal(verification.StatusRejected, resp.Status)
	s.Contains(resp.Message, "last name do not match your ID")
}

func (s *HandlerSuite) TestUploadDefaultsAccountType() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req verification.VerificationRequest) verification.Result {
			s.Equal(account.DefaultType, req.AccountType)
			s.Empty(req.Declared.FirstName)
			return verification.Result{Outcome: verification.OutcomeCompleted}
		})

	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document"), selfiePart()))

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestUploadUnknownAccountType() {
	rr := testutil.DoRequest(s.router, s.uploadRequest(
		documentPart("document"), selfiePart(), testutil.FieldPart("account_type", "brokerage")))

	body := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	s.Contains(body.Detail, "checking or savings")
}

func (s *HandlerSuite) TestUploadArchiveFailureIgnored() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("bucket missing")).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(verification.Result{Outcome: verification.OutcomeCompleted})

	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document"), selfiePart()))

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestUploadMissingSelfie() {
	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document")))

	body := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	s.Contains(body.Detail, "both a photo of your ID document and a selfie")
}

func (s *HandlerSuite) TestUploadNotMultipart() {
	req := testutil.WithBearer(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/uploadDoc", `{"document":"x"}`),
		s.token("jane@example.com"))

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func (s *HandlerSuite) TestUploadTooLarge() {
	big := testutil.FilePart{Field: "document", Filename: "id.jpg", Content: bytes.Repeat([]byte("x"), 2<<20)}

	rr := testutil.DoRequest(s.router, s.uploadRequest(big, selfiePart()))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusRequestEntityTooLarge, string(dErrors.CodePayloadTooLarge))
}

func (s *HandlerSuite) TestUploadOutcomes() {
	cases := []struct {
		name       string
		result     verification.Result
		wantStatus string
	}{
		{
			name:       "identity mismatch",
			result:     verification.Result{Outcome: verification.OutcomeFailed, Reason: verification.ReasonFaceMismatch, Confidence: 40},
			wantStatus: verification.StatusIdentityMismatch,
		},
		{
			name:       "unreadable document",
			result:     verification.Result{Outcome: verification.OutcomeFailed, Reason: verification.ReasonExtractionUnreadable},
			wantStatus: verification.StatusRejected,
		},
		{
			name:       "expired document",
			result:     verification.Result{Outcome: verification.OutcomeFailed, Reason: verification.ReasonDocumentExpired},
			wantStatus: verification.StatusRejected,
		},
		{
			name:       "notification failed",
			result:     verification.Result{Outcome: verification.OutcomeCompletedNotificationFailed, Reason: verification.ReasonNotificationUnavailable},
			wantStatus: verification.StatusCompletedNotificationFailed,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
			s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(tc.result)

			rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document"), selfiePart()))

			testutil.AssertStatusOK(s.T(), rr)
			resp := testutil.UnmarshalResponse[UploadResponse](s.T(), rr)
			s.Equal(tc.wantStatus, resp.Status)
			s.Equal(verification.CustomerMessage(tc.result), resp.Message)
		})
	}
}

func (s *HandlerSuite) TestUploadSystemFailureHidesDetail() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(verification.Result{
		Outcome:     verification.OutcomeFailed,
		Reason:      verification.ReasonAccountStoreUnavailable,
		Unavailable: true,
	})

	rr := testutil.DoRequest(s.router, s.uploadRequest(documentPart("document"), selfiePart()))

	body := testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
	s.Contains(body.Detail, "try again")
	s.False(strings.Contains(body.Detail, "account_store"))
}

func (s *HandlerSuite) TestUploadSurvivesClientCancel() {
	s.archive.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ verification.VerificationRequest) verification.Result {
			s.NoError(ctx.Err())
			return verification.Result{Outcome: verification.OutcomeCompleted}
		})

	req := s.uploadRequest(documentPart("document"), selfiePart())
	ctx, cancel := context.WithCancel(req.Context())
	cancel()

	testutil.DoRequest(s.router, req.WithContext(ctx))
}
