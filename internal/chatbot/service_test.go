package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namdevyakhya-17/psycare/internal/booking"
	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/crisis"
	"github.com/namdevyakhya-17/psycare/internal/intent"
)

type fixedBooker struct {
	outcome booking.Outcome
	err     error
}

func (f fixedBooker) Book(context.Context, string, string) (booking.Outcome, error) {
	return f.outcome, f.err
}

type countingDetector struct {
	level intent.CrisisLevel
	calls int
}

func (d *countingDetector) Detect(context.Context, string) intent.CrisisLevel {
	d.calls++
	return d.level
}

type recordingEscalator struct {
	requests []crisis.Request
}

func (e *recordingEscalator) Escalate(_ context.Context, req crisis.Request) crisis.Response {
	e.requests = append(e.requests, req)
	return crisis.Response{EmergencyMessage: crisis.EmergencyReply, Hotlines: crisis.Hotlines()}
}

type recordingChat struct {
	langs []string
	res   conversation.ChatResult
	err   error
}

func (c *recordingChat) Reply(_ context.Context, _, _, lang string) (conversation.ChatResult, error) {
	c.langs = append(c.langs, lang)
	return c.res, c.err
}

type outcomeCounter map[string]int

func (o outcomeCounter) ObserveOutcome(outcome string) { o[outcome]++ }

func TestService_BookingTakesPrecedenceOverCrisis(t *testing.T) {
	detector := &countingDetector{level: intent.CrisisCertain}
	escalator := &recordingEscalator{}
	svc := NewService(Deps{
		Booker:    fixedBooker{outcome: booking.Outcome{Kind: booking.KindConflict, Message: "taken"}},
		Detector:  detector,
		Escalator: escalator,
		Chat:      &recordingChat{},
	})

	res, err := svc.Handle(context.Background(), Request{UserID: "u1", Message: "book Dr. Rao, I want to die"})
	require.NoError(t, err)
	assert.Equal(t, KindBookingFailed, res.Kind)
	assert.True(t, res.Conflict)
	assert.Equal(t, "taken", res.Message)
	assert.Zero(t, detector.calls)
	assert.Empty(t, escalator.requests)
}

func TestService_DegradedLevelMarksEscalation(t *testing.T) {
	escalator := &recordingEscalator{}
	svc := NewService(Deps{
		Booker:    fixedBooker{outcome: booking.Outcome{Kind: booking.KindNotBooking}},
		Detector:  &countingDetector{level: intent.CrisisDegraded},
		Escalator: escalator,
		Chat:      &recordingChat{},
	})

	res, err := svc.Handle(context.Background(), Request{UserID: "u1", Message: "i can't go on", Lang: "hi", Location: "12.9,77.6"})
	require.NoError(t, err)
	assert.Equal(t, KindCrisis, res.Kind)
	require.Len(t, escalator.requests, 1)
	assert.Equal(t, crisis.Request{UserID: "u1", Message: "i can't go on", Lang: "hi", Location: "12.9,77.6", Degraded: true}, escalator.requests[0])
}

func TestService_ChatDefaultsLanguageAndCountsOutcome(t *testing.T) {
	chat := &recordingChat{res: conversation.ChatResult{Reply: "hello"}}
	outcomes := outcomeCounter{}
	svc := NewService(Deps{
		Booker:    fixedBooker{outcome: booking.Outcome{Kind: booking.KindNotBooking}},
		Detector:  &countingDetector{level: intent.CrisisNone},
		Escalator: &recordingEscalator{},
		Chat:      chat,
		Metrics:   outcomes,
	})

	res, err := svc.Handle(context.Background(), Request{UserID: "u1", Message: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, KindChat, res.Kind)
	assert.Equal(t, []string{"en"}, chat.langs)
	assert.Equal(t, 1, outcomes[string(KindChat)])
}

func TestService_Errors(t *testing.T) {
	dirErr := errors.New("directory down")
	tests := []struct {
		name    string
		deps    Deps
		message string
		wantErr error
	}{
		{
			name:    "blank message",
			message: "   ",
			wantErr: ErrMessageRequired,
		},
		{
			name:    "booking lookup failure",
			deps:    Deps{Booker: fixedBooker{err: dirErr}},
			message: "book Dr. Rao",
			wantErr: dirErr,
		},
		{
			name:    "reply unavailable",
			deps:    Deps{Chat: &recordingChat{err: conversation.ErrReplyUnavailable}},
			message: "hello",
			wantErr: conversation.ErrReplyUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := tt.deps
			if deps.Booker == nil {
				deps.Booker = fixedBooker{outcome: booking.Outcome{Kind: booking.KindNotBooking}}
			}
			if deps.Chat == nil {
				deps.Chat = &recordingChat{}
			}
			deps.Detector = &countingDetector{level: intent.CrisisNone}
			deps.Escalator = &recordingEscalator{}
			outcomes := outcomeCounter{}
			deps.Metrics = outcomes

			_, err := NewService(deps).Handle(context.Background(), Request{UserID: "u1", Message: tt.message})
			require.ErrorIs(t, err, tt.wantErr)
			if !errors.Is(tt.wantErr, ErrMessageRequired) {
				assert.Equal(t, 1, outcomes["error"])
			}
		})
	}
}

func TestService_BookingFailureStillEscalatesCrisis(t *testing.T) {
	escalator := &recordingEscalator{}
	outcomes := outcomeCounter{}
	svc := NewService(Deps{
		Booker:    fixedBooker{err: errors.New("users table unavailable")},
		Detector:  &countingDetector{level: intent.CrisisCertain},
		Escalator: escalator,
		Chat:      &recordingChat{},
		Metrics:   outcomes,
	})

	res, err := svc.Handle(context.Background(), Request{UserID: "u1", Message: "I can't cope with my schedule, I want to kill myself"})
	require.NoError(t, err)
	assert.Equal(t, KindCrisis, res.Kind)
	require.NotNil(t, res.Crisis)
	require.Len(t, escalator.requests, 1)
	assert.False(t, escalator.requests[0].Degraded)
	assert.Equal(t, 1, outcomes[string(KindCrisis)])
	assert.Zero(t, outcomes["error"])
}

func TestNewService_PanicsWithoutRequiredDeps(t *testing.T) {
	assert.Panics(t, func() { NewService(Deps{}) })
}
