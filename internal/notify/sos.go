package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/namdevyakhya-17/psycare/internal/directory"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// ErrNoRecipient is returned when no SOS recipient is configured.
var ErrNoRecipient = errors.New("notify: sos recipient not configured")

// SOSCategory tags SOS mail at the provider.
const SOSCategory = "sos-alert"

// CrisisAlert is the payload of an SOS notification.
type CrisisAlert struct {
	Profile    directory.Profile `json:"profile"`
	Location   string            `json:"location,omitempty"`
	Message    string            `json:"message"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// SOSMailer emails crisis alerts to the on-call counsellor address.
type SOSMailer struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

func NewSOSMailer(sender EmailSender, to string, logger *logging.Logger) *SOSMailer {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SOSMailer{sender: sender, to: strings.TrimSpace(to), logger: logger}
}

// SendCrisisAlert reports whether the mail was handed to the provider.
func (m *SOSMailer) SendCrisisAlert(ctx context.Context, alert CrisisAlert) (bool, error) {
	if m.to == "" {
		return false, ErrNoRecipient
	}
	msg := EmailMessage{
		To:       m.to,
		ToName:   "PsyCare Counsellor",
		Subject:  fmt.Sprintf("SOS Alert: %s may be at risk", alert.Profile.Name),
		Body:     sosText(alert),
		HTML:     sosHTML(alert),
		Urgent:   true,
		Category: SOSCategory,
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("notify: send sos mail: %w", err)
	}
	m.logger.Info("sos mail sent", "user_id", alert.Profile.ID)
	return true, nil
}

func sosText(a CrisisAlert) string {
	var b strings.Builder
	b.WriteString("A student may be at immediate risk.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", a.Profile.Name)
	fmt.Fprintf(&b, "Email: %s\n", a.Profile.Email)
	fmt.Fprintf(&b, "Mobile: %s\n", a.Profile.Mobile)
	fmt.Fprintf(&b, "Location: %s\n", locationText(a.Location))
	if link := mapsLink(a.Location); link != "" {
		fmt.Fprintf(&b, "Map: %s\n", link)
	}
	fmt.Fprintf(&b, "Time: %s\n", a.OccurredAt.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "\nMessage:\n%s\n", a.Message)
	return b.String()
}

func sosHTML(a CrisisAlert) string {
	location := html.EscapeString(locationText(a.Location))
	if link := mapsLink(a.Location); link != "" {
		location = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(link), location)
	}
	return fmt.Sprintf(`<h2>SOS Alert</h2>
<p>A student may be at immediate risk.</p>
<ul>
<li><strong>Name:</strong> %s</li>
<li><strong>Email:</strong> %s</li>
<li><strong>Mobile:</strong> %s</li>
<li><strong>Location:</strong> %s</li>
</ul>
<p><strong>Message:</strong></p>
<blockquote>%s</blockquote>`,
		html.EscapeString(a.Profile.Name),
		html.EscapeString(a.Profile.Email),
		html.EscapeString(a.Profile.Mobile),
		location,
		html.EscapeString(a.Message))
}

func locationText(loc string) string {
	if strings.TrimSpace(loc) == "" {
		return "Not shared"
	}
	return strings.TrimSpace(loc)
}

// mapsLink returns a map URL for a "lat,lon" location, or "".
func mapsLink(loc string) string {
	parts := strings.Split(strings.TrimSpace(loc), ",")
	if len(parts) != 2 {
		return ""
	}
	lat, lon := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if lat == "" || lon == "" {
		return ""
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(lat+","+lon)
}
