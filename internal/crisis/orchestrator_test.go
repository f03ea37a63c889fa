package crisis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/directory"
	"github.com/namdevyakhya-17/psycare/internal/notify"
)

type stubAlerts struct {
	mu     sync.Mutex
	sent   bool
	err    error
	alerts []notify.CrisisAlert
}

func (s *stubAlerts) SendCrisisAlert(ctx context.Context, alert notify.CrisisAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return s.sent, s.err
}

type prefixLocalizer struct{}

func (prefixLocalizer) Translate(ctx context.Context, text, lang string) string {
	if lang == "" || lang == "en" {
		return text
	}
	return "[" + lang + "] " + text
}

type brokenTurns struct{}

func (brokenTurns) Append(ctx context.Context, turn conversation.Turn) (conversation.Turn, error) {
	return conversation.Turn{}, errors.New("db down")
}

func (brokenTurns) ListOrdered(ctx context.Context, userID string) ([]conversation.Turn, error) {
	return nil, errors.New("db down")
}

type hangingTurns struct{}

func (hangingTurns) Append(ctx context.Context, turn conversation.Turn) (conversation.Turn, error) {
	<-ctx.Done()
	return conversation.Turn{}, ctx.Err()
}

func (hangingTurns) ListOrdered(ctx context.Context, userID string) ([]conversation.Turn, error) {
	return nil, nil
}

type brokenDirectory struct{}

func (brokenDirectory) FindByRole(ctx context.Context, role string) ([]directory.User, error) {
	return nil, errors.New("directory down")
}

func (brokenDirectory) GetByID(ctx context.Context, id string) (directory.User, error) {
	return directory.User{}, errors.New("directory down")
}

type escalationCounter struct {
	mu          sync.Mutex
	levels      []string
	sos         []bool
	persistence []string
}

func (c *escalationCounter) ObserveEscalation(level string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levels = append(c.levels, level)
}

func (c *escalationCounter) ObserveSOSDispatch(sent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sos = append(c.sos, sent)
}

func (c *escalationCounter) ObservePersistenceError(record string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistence = append(c.persistence, record)
}

func testDirectory() *directory.MemoryStore {
	return directory.NewMemoryStore(
		directory.User{ID: "s1", Name: "Asha", Email: "asha@example.com", Role: "student"},
		directory.User{ID: "t1", Name: "Dr. Rao", Email: "rao@example.com", Role: directory.RolePsychologist},
	)
}

func TestEscalate_FullSequence(t *testing.T) {
	turns := conversation.NewMemoryTurnStore()
	alerts := &stubAlerts{sent: true}
	metrics := &escalationCounter{}
	o := NewOrchestrator(turns, testDirectory(), alerts, nil, WithLocalizer(prefixLocalizer{}), WithMetrics(metrics))

	resp := o.Escalate(context.Background(), Request{
		UserID:   "s1",
		Message:  "I want to kill myself",
		Lang:     "en",
		Location: "12.97,77.59",
	})

	assert.Equal(t, EmergencyReply, resp.EmergencyMessage)
	assert.NotEmpty(t, resp.Hotlines)
	assert.Equal(t, []directory.Therapist{{ID: "t1", Name: "Dr. Rao", Email: "rao@example.com"}}, resp.Therapists)
	assert.True(t, resp.SOSMailSent)
	assert.False(t, resp.Degraded)

	stored, err := turns.ListOrdered(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Escalated)
	require.NotNil(t, stored[0].SeverityTag)
	assert.Equal(t, "suicidal", *stored[0].SeverityTag)
	assert.Equal(t, EmergencyReply, stored[0].Reply)

	require.Len(t, alerts.alerts, 1)
	alert := alerts.alerts[0]
	assert.Equal(t, "Asha", alert.Profile.Name)
	assert.Equal(t, directory.Unknown, alert.Profile.Mobile)
	assert.Equal(t, "12.97,77.59", alert.Location)
	assert.Equal(t, "I want to kill myself", alert.Message)

	assert.Equal(t, []string{"certain"}, metrics.levels)
	assert.Equal(t, []bool{true}, metrics.sos)
}

func TestEscalate_DegradedAppendsNoticeAndTranslates(t *testing.T) {
	o := NewOrchestrator(conversation.NewMemoryTurnStore(), testDirectory(), &stubAlerts{sent: true}, nil, WithLocalizer(prefixLocalizer{}))

	resp := o.Escalate(context.Background(), Request{UserID: "s1", Message: "I can't go on", Lang: "hi", Degraded: true})

	assert.True(t, resp.Degraded)
	assert.True(t, strings.HasPrefix(resp.EmergencyMessage, "[hi] "))
	assert.True(t, strings.HasSuffix(resp.EmergencyMessage, "AI service is busy, using basic detection."))
}

func TestEscalate_MailFailureIsReportedNotRaised(t *testing.T) {
	metrics := &escalationCounter{}
	o := NewOrchestrator(conversation.NewMemoryTurnStore(), testDirectory(), &stubAlerts{sent: true, err: errors.New("smtp down")}, nil, WithMetrics(metrics))

	resp := o.Escalate(context.Background(), Request{UserID: "s1", Message: "I want to die"})

	assert.False(t, resp.SOSMailSent)
	assert.NotEmpty(t, resp.EmergencyMessage)
	assert.Equal(t, []bool{false}, metrics.sos)
}

func TestEscalate_EveryStepFailingStillResponds(t *testing.T) {
	metrics := &escalationCounter{}
	alerts := &stubAlerts{sent: true}
	o := NewOrchestrator(brokenTurns{}, brokenDirectory{}, alerts, nil, WithMetrics(metrics))

	resp := o.Escalate(context.Background(), Request{UserID: "s9", Message: "I want to end my life"})

	assert.Equal(t, EmergencyReply, resp.EmergencyMessage)
	assert.NotNil(t, resp.Therapists)
	assert.Empty(t, resp.Therapists)
	assert.NotEmpty(t, resp.Hotlines)
	assert.True(t, resp.SOSMailSent)
	assert.Equal(t, []string{"crisis_turn"}, metrics.persistence)

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, directory.Profile{ID: "s9", Name: "Unknown", Email: "Unknown", Mobile: "Unknown"}, alerts.alerts[0].Profile)
}

func TestEscalate_HungTurnWriteIsBoundedByStepTimeout(t *testing.T) {
	metrics := &escalationCounter{}
	alerts := &stubAlerts{sent: true}
	o := NewOrchestrator(hangingTurns{}, testDirectory(), alerts, nil, WithStepTimeout(50*time.Millisecond), WithMetrics(metrics))

	done := make(chan Response, 1)
	go func() {
		done <- o.Escalate(context.Background(), Request{UserID: "s1", Message: "I want to die"})
	}()

	select {
	case resp := <-done:
		assert.True(t, resp.SOSMailSent)
		assert.Equal(t, EmergencyReply, resp.EmergencyMessage)
		assert.Equal(t, []string{"crisis_turn"}, metrics.persistence)
	case <-time.After(5 * time.Second):
		t.Fatal("escalation blocked on the turn write")
	}
}

func TestEscalate_NotDeduplicated(t *testing.T) {
	turns := conversation.NewMemoryTurnStore()
	alerts := &stubAlerts{sent: true}
	o := NewOrchestrator(turns, testDirectory(), alerts, nil)

	for i := 0; i < 3; i++ {
		o.Escalate(context.Background(), Request{UserID: "s1", Message: "I want to die"})
	}

	stored, _ := turns.ListOrdered(context.Background(), "s1")
	assert.Len(t, stored, 3)
	assert.Len(t, alerts.alerts, 3)
}

func TestEscalate_NoAlertSender(t *testing.T) {
	o := NewOrchestrator(conversation.NewMemoryTurnStore(), testDirectory(), nil, nil)
	resp := o.Escalate(context.Background(), Request{UserID: "s1", Message: "suicidal"})
	assert.False(t, resp.SOSMailSent)
}

func TestHotlines_ReturnsCopy(t *testing.T) {
	h := Hotlines()
	require.Len(t, h, 4)
	h[0].Phone = "000"
	assert.Equal(t, "112", Hotlines()[0].Phone)
	assert.Equal(t, "https://www.aasra.info/", Hotlines()[3].Website)
}
