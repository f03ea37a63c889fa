package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/namdevyakhya-17/psycare/internal/directory"
	"github.com/namdevyakhya-17/psycare/internal/intent"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

var serviceTracer = otel.Tracer("psycare.internal.booking")

// Kind enumerates booking outcomes.
type Kind string

const (
	KindNotBooking Kind = "not_booking"
	KindNeedsTime  Kind = "needs_time"
	KindConflict   Kind = "conflict"
	KindBooked     Kind = "booked"
	KindFailed     Kind = "failed"
)

// Outcome is the result of a booking attempt. Message is untranslated.
type Outcome struct {
	Kind        Kind
	Therapist   directory.Therapist
	Time        time.Time
	Appointment *Appointment
	Message     string
}

// Match is a resolved therapist with an optional time.
type Match struct {
	Therapist directory.Therapist
	Time      *time.Time
}

// Resolve finds the first therapist whose name appears in text and the first
// timestamp mentioned. It returns nil when no therapist matches.
func Resolve(text string, therapists []directory.Therapist, parser *TimeParser, now time.Time) *Match {
	therapist, ok := MatchTherapist(text, therapists)
	if !ok {
		return nil
	}
	m := &Match{Therapist: therapist}
	if t, ok := parser.Parse(text, now); ok {
		m.Time = &t
	}
	return m
}

// MatchTherapist does a case-insensitive substring match; first match wins.
func MatchTherapist(text string, therapists []directory.Therapist) (directory.Therapist, bool) {
	lower := strings.ToLower(text)
	for _, t := range therapists {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name != "" && strings.Contains(lower, name) {
			return t, true
		}
	}
	return directory.Therapist{}, false
}

// Metrics records booking results.
type Metrics interface {
	ObserveBooking(result string)
}

// Service runs the booking flow.
type Service struct {
	directory  directory.UserDirectory
	store      Store
	parser     *TimeParser
	pending    PendingStore
	pendingTTL time.Duration
	duration   time.Duration
	metrics    Metrics
	logger     *logging.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPendingStore enables the pending-intent follow-up flow.
func WithPendingStore(p PendingStore, ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pending = p
			s.pendingTTL = ttl
		}
	}
}

// WithDuration overrides the appointment length.
func WithDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a booking service.
func NewService(dir directory.UserDirectory, store Store, parser *TimeParser, logger *logging.Logger, opts ...Option) *Service {
	if dir == nil || store == nil || parser == nil {
		panic("booking: directory, store and parser required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		directory: dir,
		store:     store,
		parser:    parser,
		duration:  DefaultDuration,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book interprets text as a booking request for userID. Persistence failures
// on insert yield KindFailed, not an error; directory failures are returned.
func (s *Service) Book(ctx context.Context, userID, text string) (Outcome, error) {
	ctx, span := serviceTracer.Start(ctx, "booking.book")
	defer span.End()

	now := s.now()
	gated := intent.IsBookingRequest(text)
	pending, followUp := s.followUp(ctx, userID, text, now)
	if !gated && pending == nil {
		return Outcome{Kind: KindNotBooking}, nil
	}

	therapists, err := directory.Therapists(ctx, s.directory)
	if err != nil {
		span.RecordError(err)
		return Outcome{}, fmt.Errorf("booking: list therapists: %w", err)
	}

	var match *Match
	if gated {
		match = Resolve(text, therapists, s.parser, now)
	}
	if match == nil && pending != nil {
		match = resumePending(pending, followUp, therapists)
	}
	if match == nil {
		return Outcome{Kind: KindNotBooking}, nil
	}
	span.SetAttributes(attribute.String("booking.therapist_id", match.Therapist.ID))

	if match.Time == nil {
		s.rememberPending(ctx, userID, match.Therapist.ID, now)
		return s.finish(Outcome{
			Kind:      KindNeedsTime,
			Therapist: match.Therapist,
			Message: fmt.Sprintf("I recognized your request to book with %s. Please provide the appointment time (e.g., \"Sep 17 3pm\").",
				match.Therapist.Name),
		}), nil
	}

	at := *match.Time
	appt := Appointment{
		ID:              uuid.NewString(),
		StudentID:       userID,
		TherapistID:     match.Therapist.ID,
		AppointmentTime: at,
		DurationMinutes: int(s.duration / time.Minute),
		Status:          StatusScheduled,
		CreatedAt:       now.UTC(),
	}
	err = s.reserve(ctx, appt)
	switch {
	case errors.Is(err, ErrSlotTaken):
		s.clearPending(ctx, userID)
		return s.finish(Outcome{
			Kind:      KindConflict,
			Therapist: match.Therapist,
			Time:      at,
			Message: fmt.Sprintf("❌ %s is already booked at %s. Please choose another time.",
				match.Therapist.Name, s.display(at)),
		}), nil
	case err != nil:
		span.RecordError(err)
		s.logger.Error("appointment insert failed", "user_id", userID, "therapist_id", match.Therapist.ID, "error", err)
		return s.finish(Outcome{
			Kind:      KindFailed,
			Therapist: match.Therapist,
			Time:      at,
			Message:   "❌ Sorry, we could not book your appointment right now. Please try again shortly.",
		}), nil
	}

	s.clearPending(ctx, userID)
	return s.finish(Outcome{
		Kind:        KindBooked,
		Therapist:   match.Therapist,
		Time:        at,
		Appointment: &appt,
		Message: fmt.Sprintf("✅ Appointment confirmed with %s at %s.",
			match.Therapist.Name, s.display(at)),
	}), nil
}

func (s *Service) reserve(ctx context.Context, appt Appointment) error {
	created, err := s.store.Create(ctx, appt)
	if err != nil {
		return err
	}
	if !created {
		return ErrSlotTaken
	}
	return nil
}

func (s *Service) finish(out Outcome) Outcome {
	if s.metrics != nil {
		s.metrics.ObserveBooking(string(out.Kind))
	}
	return out
}

func (s *Service) display(t time.Time) string {
	return t.In(s.parser.Location()).Format("Mon, Jan 2 2006 3:04 PM MST")
}

// followUp returns the pending intent and its time when text is a time-only
// follow-up to an earlier NeedsTime outcome. Crisis phrases never resume one.
func (s *Service) followUp(ctx context.Context, userID, text string, now time.Time) (*PendingIntent, time.Time) {
	if s.pending == nil || intent.MatchesCrisisPhrase(text) {
		return nil, time.Time{}
	}
	at, ok := s.parser.ParseFollowUp(text, now)
	if !ok {
		return nil, time.Time{}
	}
	pending := s.loadPending(ctx, userID)
	if pending == nil {
		return nil, time.Time{}
	}
	return pending, at
}

func resumePending(p *PendingIntent, at time.Time, therapists []directory.Therapist) *Match {
	for _, t := range therapists {
		if t.ID == p.TherapistID {
			return &Match{Therapist: t, Time: &at}
		}
	}
	return nil
}

func (s *Service) loadPending(ctx context.Context, userID string) *PendingIntent {
	if s.pending == nil {
		return nil
	}
	p, err := s.pending.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("pending booking lookup failed", "user_id", userID, "error", err)
		return nil
	}
	if p == nil || (!p.ExpiresAt.IsZero() && s.now().After(p.ExpiresAt)) {
		return nil
	}
	return p
}

func (s *Service) rememberPending(ctx context.Context, userID, therapistID string, now time.Time) {
	if s.pending == nil {
		return
	}
	err := s.pending.Put(ctx, PendingIntent{
		UserID:      userID,
		TherapistID: therapistID,
		ExpiresAt:   now.Add(s.pendingTTL).UTC(),
	})
	if err != nil {
		s.logger.Warn("pending booking not stored", "user_id", userID, "error", err)
	}
}

func (s *Service) clearPending(ctx context.Context, userID string) {
	if s.pending == nil {
		return
	}
	if err := s.pending.Clear(ctx, userID); err != nil {
		s.logger.Warn("pending booking not cleared", "user_id", userID, "error", err)
	}
}
