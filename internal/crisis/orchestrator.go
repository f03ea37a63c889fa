// Package crisis runs the escalation sequence for messages flagged as a
// self-harm risk. Every step is fail-soft: the emergency response is always
// returned.
package crisis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/directory"
	"github.com/namdevyakhya-17/psycare/internal/notify"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

var crisisTracer = otel.Tracer("psycare.internal.crisis")

// AlertSender dispatches an SOS notification and reports whether it was sent.
type AlertSender interface {
	SendCrisisAlert(ctx context.Context, alert notify.CrisisAlert) (bool, error)
}

// Localizer translates outbound text, returning the input on failure.
type Localizer interface {
	Translate(ctx context.Context, text, lang string) string
}

// Metrics is the subset of chat metrics recorded during escalation.
type Metrics interface {
	ObserveEscalation(level string)
	ObserveSOSDispatch(sent bool)
	ObservePersistenceError(record string)
}

// Request is a message that was classified as a crisis.
type Request struct {
	UserID   string
	Message  string
	Lang     string
	Location string
	// Degraded is set when model confirmation was unavailable.
	Degraded bool
}

// Response is the assembled escalation payload.
type Response struct {
	EmergencyMessage string
	Hotlines         []Hotline
	Therapists       []directory.Therapist
	SOSMailSent      bool
	Degraded         bool
}

// Orchestrator runs the escalation steps.
type Orchestrator struct {
	turns     conversation.TurnStore
	directory directory.UserDirectory
	alerts    AlertSender
	localizer Localizer
	timeout   time.Duration
	metrics   Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLocalizer(l Localizer) Option {
	return func(o *Orchestrator) { o.localizer = l }
}

// WithStepTimeout bounds each network step.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the escalation sequence. alerts may be nil, in which
// case no SOS is attempted and SOSMailSent is false.
func NewOrchestrator(turns conversation.TurnStore, dir directory.UserDirectory, alerts AlertSender, logger *logging.Logger, opts ...Option) *Orchestrator {
	if turns == nil || dir == nil {
		panic("crisis: turn store and directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		turns:     turns,
		directory: dir,
		alerts:    alerts,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Escalate records the crisis turn, notifies the SOS contact and assembles
// the emergency response. It never fails.
func (o *Orchestrator) Escalate(ctx context.Context, req Request) Response {
	ctx, span := crisisTracer.Start(ctx, "crisis.escalate")
	defer span.End()
	span.SetAttributes(attribute.Bool("crisis.degraded", req.Degraded))

	level := "certain"
	if req.Degraded {
		level = "degraded"
	}
	if o.metrics != nil {
		o.metrics.ObserveEscalation(level)
	}
	o.logger.Warn("crisis escalation triggered", "user_id", req.UserID, "level", level)

	// The durable record goes first so it survives later failures.
	o.recordTurn(ctx, req)
	profile := o.resolveProfile(ctx, req.UserID)

	var (
		wg         sync.WaitGroup
		sent       bool
		message    string
		therapists []directory.Therapist
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		sent = o.dispatchAlert(ctx, req, profile)
	}()
	go func() {
		defer wg.Done()
		message = o.emergencyMessage(ctx, req)
	}()
	go func() {
		defer wg.Done()
		therapists = o.therapists(ctx)
	}()
	wg.Wait()

	span.SetAttributes(attribute.Bool("crisis.sos_sent", sent))
	return Response{
		EmergencyMessage: message,
		Hotlines:         Hotlines(),
		Therapists:       therapists,
		SOSMailSent:      sent,
		Degraded:         req.Degraded,
	}
}

func (o *Orchestrator) recordTurn(ctx context.Context, req Request) {
	ctx, cancel := o.stepContext(ctx)
	defer cancel()
	tag := conversation.SeveritySuicidal
	_, err := o.turns.Append(ctx, conversation.Turn{
		UserID:      req.UserID,
		Message:     req.Message,
		Reply:       EmergencyReply,
		Escalated:   true,
		SeverityTag: &tag,
	})
	if err != nil {
		o.logger.Error("crisis turn not persisted", "user_id", req.UserID, "error", err)
		if o.metrics != nil {
			o.metrics.ObservePersistenceError("crisis_turn")
		}
	}
}

func (o *Orchestrator) resolveProfile(ctx context.Context, userID string) directory.Profile {
	ctx, cancel := o.stepContext(ctx)
	defer cancel()
	user, err := o.directory.GetByID(ctx, userID)
	if err != nil {
		o.logger.Warn("crisis profile lookup failed", "user_id", userID, "error", err)
		return directory.UnknownProfile(userID)
	}
	return directory.ProfileFor(userID, user)
}

func (o *Orchestrator) dispatchAlert(ctx context.Context, req Request, profile directory.Profile) bool {
	if o.alerts == nil {
		o.logger.Warn("no crisis alert sender configured", "user_id", req.UserID)
		o.observeSOS(false)
		return false
	}
	ctx, cancel := o.stepContext(ctx)
	defer cancel()
	sent, err := o.alerts.SendCrisisAlert(ctx, notify.CrisisAlert{
		Profile:    profile,
		Location:   req.Location,
		Message:    req.Message,
		OccurredAt: o.now().UTC(),
	})
	if err != nil {
		o.logger.Error("sos dispatch failed", "user_id", req.UserID, "error", err)
		sent = false
	}
	o.observeSOS(sent)
	return sent
}

func (o *Orchestrator) observeSOS(sent bool) {
	if o.metrics != nil {
		o.metrics.ObserveSOSDispatch(sent)
	}
}

func (o *Orchestrator) emergencyMessage(ctx context.Context, req Request) string {
	text := EmergencyReply
	if req.Degraded {
		text += DegradedNotice
	}
	if o.localizer == nil {
		return text
	}
	return o.localizer.Translate(ctx, text, req.Lang)
}

func (o *Orchestrator) therapists(ctx context.Context) []directory.Therapist {
	ctx, cancel := o.stepContext(ctx)
	defer cancel()
	list, err := directory.Therapists(ctx, o.directory)
	if err != nil {
		o.logger.Warn("therapist directory unavailable during escalation", "error", err)
		return []directory.Therapist{}
	}
	return list
}

func (o *Orchestrator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}
