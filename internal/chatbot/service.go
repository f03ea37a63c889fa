// Package chatbot routes an inbound chat message to the booking, crisis or
// conversation pipeline.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/namdevyakhya-17/psycare/internal/booking"
	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/crisis"
	"github.com/namdevyakhya-17/psycare/internal/intent"
	"github.com/namdevyakhya-17/psycare/internal/localize"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// ErrMessageRequired is returned for a blank message.
var ErrMessageRequired = errors.New("chatbot: message is required")

var routerTracer = otel.Tracer("psycare.internal.chatbot")

// Request is one inbound chat message.
type Request struct {
	UserID   string
	Message  string
	Lang     string
	Location string
}

// Booker runs the booking flow.
type Booker interface {
	Book(ctx context.Context, userID, text string) (booking.Outcome, error)
}

// CrisisDetector classifies crisis risk.
type CrisisDetector interface {
	Detect(ctx context.Context, text string) intent.CrisisLevel
}

// Escalator runs crisis escalation.
type Escalator interface {
	Escalate(ctx context.Context, req crisis.Request) crisis.Response
}

// ChatPipeline produces ordinary replies.
type ChatPipeline interface {
	Reply(ctx context.Context, userID, text, lang string) (conversation.ChatResult, error)
}

// Localizer translates outbound text.
type Localizer interface {
	Translate(ctx context.Context, text, lang string) string
}

// OutcomeObserver counts request outcomes.
type OutcomeObserver interface {
	ObserveOutcome(outcome string)
}

// Service dispatches messages: booking first, then crisis, then chat.
type Service struct {
	booker    Booker
	detector  CrisisDetector
	escalator Escalator
	chat      ChatPipeline
	localizer Localizer
	metrics   OutcomeObserver
	logger    *logging.Logger
}

// Deps are the collaborators of a Service.
type Deps struct {
	Booker    Booker
	Detector  CrisisDetector
	Escalator Escalator
	Chat      ChatPipeline
	Localizer Localizer
	Metrics   OutcomeObserver
	Logger    *logging.Logger
}

// NewService wires the router. Booker, Detector, Escalator and Chat are required.
func NewService(deps Deps) *Service {
	if deps.Booker == nil || deps.Detector == nil || deps.Escalator == nil || deps.Chat == nil {
		panic("chatbot: booker, detector, escalator and chat pipeline required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Service{
		booker:    deps.Booker,
		detector:  deps.Detector,
		escalator: deps.Escalator,
		chat:      deps.Chat,
		localizer: deps.Localizer,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// Handle classifies and dispatches one message.
func (s *Service) Handle(ctx context.Context, req Request) (Result, error) {
	ctx, span := routerTracer.Start(ctx, "chatbot.handle")
	defer span.End()

	if strings.TrimSpace(req.Message) == "" {
		return Result{}, ErrMessageRequired
	}
	if strings.TrimSpace(req.Lang) == "" {
		req.Lang = localize.DefaultLang
	}

	res, err := s.dispatch(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.observe("error")
		return Result{}, err
	}
	span.SetAttributes(attribute.String("chat.outcome", string(res.Kind)))
	s.observe(string(res.Kind))
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, req Request) (Result, error) {
	outcome, err := s.booker.Book(ctx, req.UserID, req.Message)
	if err != nil {
		// A broken booking backend must not hide a crisis message.
		s.logger.Error("booking lookup failed", "user_id", req.UserID, "error", err)
		if level := s.detector.Detect(ctx, req.Message); level != intent.CrisisNone {
			return s.escalate(ctx, req, level), nil
		}
		return Result{}, fmt.Errorf("chatbot: booking: %w", err)
	}
	if outcome.Kind != booking.KindNotBooking {
		return s.bookingResult(ctx, outcome, req.Lang), nil
	}

	if level := s.detector.Detect(ctx, req.Message); level != intent.CrisisNone {
		return s.escalate(ctx, req, level), nil
	}

	chat, err := s.chat.Reply(ctx, req.UserID, req.Message, req.Lang)
	if err != nil {
		return Result{}, fmt.Errorf("chatbot: chat: %w", err)
	}
	if chat.Busy {
		return Result{Kind: KindBusy, Reply: chat.Reply}, nil
	}
	return Result{Kind: KindChat, Reply: chat.Reply}, nil
}

func (s *Service) escalate(ctx context.Context, req Request, level intent.CrisisLevel) Result {
	resp := s.escalator.Escalate(ctx, crisis.Request{
		UserID:   req.UserID,
		Message:  req.Message,
		Lang:     req.Lang,
		Location: req.Location,
		Degraded: level == intent.CrisisDegraded,
	})
	return Result{Kind: KindCrisis, Crisis: &resp}
}

func (s *Service) bookingResult(ctx context.Context, out booking.Outcome, lang string) Result {
	msg := out.Message
	if s.localizer != nil {
		msg = s.localizer.Translate(ctx, msg, lang)
	}
	switch out.Kind {
	case booking.KindNeedsTime:
		return Result{Kind: KindNeedsTime, Message: msg}
	case booking.KindBooked:
		return Result{Kind: KindBooked, Message: msg, Appointment: out.Appointment}
	default:
		return Result{Kind: KindBookingFailed, Message: msg, Conflict: out.Kind == booking.KindConflict}
	}
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveOutcome(outcome)
	}
}
