// Package verification turns an ID document and a selfie into a verified
// account. The Coordinator runs a fixed sequence of steps (extract, match,
// create account, notify), each calling one collaborator exactly once.
package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"penny/internal/account"
	"penny/internal/providers"
	"penny/pkg/email"
	audit "penny/pkg/platform/audit"
	"penny/pkg/requestcontext"
)

const (
	DefaultFaceMatchThreshold = 90.0
	DefaultStepTimeout        = 15 * time.Second
)

type step func(ctx context.Context, a Attempt) Attempt

// Coordinator holds no per-customer state; concurrent runs for one email are
// made safe by AccountStore.CreateIfAbsent.
type Coordinator struct {
	extractor     Extractor
	matcher       FaceMatcher
	accounts      AccountStore
	notifier      Notifier
	auditor       AuditPublisher
	logger        *slog.Logger
	metrics       *Metrics
	tracer        trace.Tracer
	threshold     float64
	stepTimeout   time.Duration
	rejectExpired bool

	steps map[State]step
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditor = p
	}
}

// WithFaceMatchThreshold sets the similarity a match must exceed.
func WithFaceMatchThreshold(threshold float64) Option {
	return func(c *Coordinator) {
		c.threshold = threshold
	}
}

// WithStepTimeout bounds every collaborator call.
func WithStepTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.stepTimeout = d
		}
	}
}

// WithRejectExpired fails attempts whose document expired before today.
func WithRejectExpired(reject bool) Option {
	return func(c *Coordinator) {
		c.rejectExpired = reject
	}
}

func NewCoordinator(extractor Extractor, matcher FaceMatcher, accounts AccountStore, notifier Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		extractor:     extractor,
		matcher:       matcher,
		accounts:      accounts,
		notifier:      notifier,
		logger:        slog.Default(),
		tracer:        otel.Tracer("penny/verification"),
		threshold:     DefaultFaceMatchThreshold,
		stepTimeout:   DefaultStepTimeout,
		rejectExpired: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.steps = map[State]step{
		StateReceived:     c.extract,
		StateExtracted:    c.match,
		StateMatched:      c.createAccount,
		StateAccountReady: c.notify,
	}
	return c
}

// Verify runs one attempt to a terminal outcome. It never retries.
func (c *Coordinator) Verify(ctx context.Context, req VerificationRequest) Result {
	a := Attempt{
		ID:        uuid.NewString(),
		State:     StateReceived,
		Request:   req,
		StartedAt: time.Now(),
	}

	ctx, span := c.tracer.Start(ctx, "verification.verify", trace.WithAttributes(
		attribute.String("attempt_id", a.ID),
	))
	defer span.End()

	if len(req.DocumentImage) == 0 || len(req.FaceImage) == 0 || strings.TrimSpace(req.CustomerEmail) == "" {
		a = a.fail(ReasonMissingInput, false, nil)
	}

	for !a.State.Terminal() {
		run := c.steps[a.State]
		from := a.State
		start := time.Now()
		a = run(ctx, a)
		c.metrics.ObserveStep(from.String(), start)
	}

	res := a.result()
	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.String("reason", string(res.Reason)),
	)
	if res.Outcome == OutcomeFailed && !res.Reason.Business() {
		span.SetStatus(codes.Error, string(res.Reason))
	}
	c.metrics.ObserveOutcome(res, a.StartedAt)
	c.report(ctx, a, res)
	return res
}

// call bounds one collaborator call by the step timeout inside its own span.
func (c *Coordinator) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "verification."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Coordinator) extract(ctx context.Context, a Attempt) Attempt {
	var identity ExtractedIdentity
	err := c.call(ctx, "extract", func(ctx context.Context) error {
		var err error
		identity, err = c.extractor.Extract(ctx, a.Request.DocumentImage)
		return err
	})
	if err != nil {
		return a.fail(ReasonExtractionUnreadable, providers.IsUnavailable(err), err)
	}

	if identity.FullName == "" {
		identity.FullName = strings.TrimSpace(identity.FirstName + " " + identity.LastName)
	}
	a.Identity = identity

	if field, ok := mismatchedField(a.Request.Declared, identity); ok {
		a.MismatchedField = field
		return a.fail(ReasonDetailsMismatch, false, nil)
	}
	if c.rejectExpired && expired(identity.ExpiryDate, requestcontext.Now(ctx)) {
		return a.fail(ReasonDocumentExpired, false, nil)
	}

	a.State = StateExtracted
	return a
}

// mismatchedField compares each declared detail with the document, ignoring
// case and surrounding space.
func mismatchedField(declared DeclaredDetails, identity ExtractedIdentity) (string, bool) {
	checks := []struct {
		field, declared, printed string
	}{
		{FieldFirstName, declared.FirstName, identity.FirstName},
		{FieldLastName, declared.LastName, identity.LastName},
	}
	for _, c := range checks {
		want := strings.TrimSpace(c.declared)
		if want == "" {
			continue
		}
		if !strings.EqualFold(want, strings.TrimSpace(c.printed)) {
			return c.field, true
		}
	}
	return "", false
}

// expired compares the printed expiry date with the request's calendar date
// in the request's own zone. A document is valid through its expiry date.
func expired(expiry, now time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	ey, em, ed := expiry.Date()
	ny, nm, nd := now.Date()
	return time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}

func (c *Coordinator) match(ctx context.Context, a Attempt) Attempt {
	var confidence float64
	err := c.call(ctx, "match", func(ctx context.Context) error {
		var err error
		confidence, err = c.matcher.Match(ctx, a.Request.DocumentImage, a.Request.FaceImage)
		return err
	})
	if err != nil {
		return a.fail(ReasonFaceMatchUnavailable, true, err)
	}

	a.Confidence = confidence
	if confidence <= c.threshold {
		return a.fail(ReasonFaceMismatch, false, nil)
	}
	a.State = StateMatched
	return a
}

func (c *Coordinator) createAccount(ctx context.Context, a Attempt) Attempt {
	record := account.Record{
		Email:     email.Normalize(a.Request.CustomerEmail),
		Name:      a.Identity.FullName,
		Type:      a.Request.AccountType,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	if record.Type == "" {
		record.Type = account.DefaultType
	}
	if record.Name == "" {
		first, last := email.DeriveNameFromEmail(record.Email)
		record.Name = strings.TrimSpace(first + " " + last)
	}

	var (
		stored  account.Record
		outcome account.CreateOutcome
	)
	err := c.call(ctx, "create_account", func(ctx context.Context) error {
		var err error
		stored, outcome, err = c.accounts.CreateIfAbsent(ctx, record)
		return err
	})
	if err != nil {
		return a.fail(ReasonAccountStoreUnavailable, true, err)
	}

	a.Account = stored
	a.Creation = outcome
	a.State = StateAccountReady
	return a
}

func (c *Coordinator) notify(ctx context.Context, a Attempt) Attempt {
	n := WelcomeNotification(a.Account, a.Creation)
	err := c.call(ctx, "notify", func(ctx context.Context) error {
		return c.notifier.Send(ctx, n)
	})
	a.State = StateCompleted
	if err != nil {
		a.Reason = ReasonNotificationUnavailable
		a.Unavailable = true
		a.Err = err
	}
	return a
}

func (c *Coordinator) report(ctx context.Context, a Attempt, res Result) {
	requestID := requestcontext.RequestID(ctx)
	attrs := []any{
		"request_id", requestID,
		"attempt_id", a.ID,
		"outcome", res.Outcome,
		"final_state", a.State.String(),
		"duration_ms", time.Since(a.StartedAt).Milliseconds(),
	}
	if a.Reason != ReasonNone {
		attrs = append(attrs, "reason", a.Reason)
	}
	if a.Confidence > 0 {
		attrs = append(attrs, "confidence", a.Confidence)
	}
	if a.MismatchedField != "" {
		attrs = append(attrs, "field", a.MismatchedField)
	}

	switch {
	case a.Err != nil:
		c.logger.ErrorContext(ctx, "verification collaborator failed", append(attrs, "error", a.Err)...)
	case res.Outcome == OutcomeFailed:
		c.logger.InfoContext(ctx, "verification rejected", attrs...)
	default:
		c.logger.InfoContext(ctx, "verification completed", attrs...)
	}

	subject := email.Normalize(a.Request.CustomerEmail)
	base := audit.Event{
		Subject:   subject,
		Decision:  string(res.Outcome),
		Reason:    string(res.Reason),
		RequestID: requestID,
		AttemptID: a.ID,
	}

	var events []audit.AuditEvent
	switch a.Creation {
	case account.Created:
		events = append(events, audit.EventAccountCreated)
	case account.AlreadyExisted:
		events = append(events, audit.EventAccountReused)
	}
	switch {
	case res.Reason == ReasonFaceMismatch, res.Reason == ReasonDetailsMismatch:
		events = append(events, audit.EventIdentityMismatch)
	case res.Outcome == OutcomeFailed:
		events = append(events, audit.EventVerificationFailed)
	case res.Outcome == OutcomeCompletedNotificationFailed:
		events = append(events, audit.EventNotificationFailed, audit.EventVerificationCompleted)
	default:
		events = append(events, audit.EventVerificationCompleted)
	}
	c.emit(ctx, base, events...)
}

// emit is best effort: an audit failure never changes a verification outcome.
func (c *Coordinator) emit(ctx context.Context, base audit.Event, actions ...audit.AuditEvent) {
	if c.auditor == nil {
		return
	}
	for _, action := range actions {
		event := base
		event.Action = string(action)
		if err := c.auditor.Emit(ctx, event); err != nil {
			c.logger.WarnContext(ctx, "failed to emit audit event",
				"request_id", base.RequestID,
				"action", action,
				"error", err,
			)
		}
	}
}
