package chatbot

import (
	"encoding/json"
	"fmt"

	"github.com/namdevyakhya-17/psycare/internal/booking"
	"github.com/namdevyakhya-17/psycare/internal/crisis"
	"github.com/namdevyakhya-17/psycare/internal/directory"
)

// Kind tags a Result.
type Kind string

const (
	KindNeedsTime     Kind = "needs_time"
	KindBookingFailed Kind = "booking_failed"
	KindBooked        Kind = "booked"
	KindCrisis        Kind = "crisis"
	KindChat          Kind = "chat"
	KindBusy          Kind = "busy"
)

// Result is the outcome of one chat request. Only the fields of its Kind are
// set; MarshalJSON emits the wire shape for that kind. Conflict separates a
// taken slot from a failed insert within KindBookingFailed.
type Result struct {
	Kind        Kind
	Message     string
	Appointment *booking.Appointment
	Crisis      *crisis.Response
	Reply       string
	Conflict    bool
}

type needsTimeBody struct {
	BookingRequiredTime bool   `json:"bookingRequiredTime"`
	Message             string `json:"message"`
}

type bookingBody struct {
	BookingSuccess bool                 `json:"bookingSuccess"`
	Message        string               `json:"message"`
	Appointment    *booking.Appointment `json:"appointment,omitempty"`
}

type crisisBody struct {
	Escalate         bool                  `json:"escalate"`
	EmergencyMessage string                `json:"emergencyMessage"`
	Hotlines         []crisis.Hotline      `json:"hotlines"`
	Therapists       []directory.Therapist `json:"therapists"`
	SOSMailSent      bool                  `json:"sosMailSent"`
}

type replyBody struct {
	Reply string `json:"reply"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindNeedsTime:
		return json.Marshal(needsTimeBody{BookingRequiredTime: true, Message: r.Message})
	case KindBookingFailed:
		return json.Marshal(bookingBody{BookingSuccess: false, Message: r.Message})
	case KindBooked:
		return json.Marshal(bookingBody{BookingSuccess: true, Message: r.Message, Appointment: r.Appointment})
	case KindCrisis:
		if r.Crisis == nil {
			return nil, fmt.Errorf("chatbot: crisis result without payload")
		}
		therapists := r.Crisis.Therapists
		if therapists == nil {
			therapists = []directory.Therapist{}
		}
		return json.Marshal(crisisBody{
			Escalate:         true,
			EmergencyMessage: r.Crisis.EmergencyMessage,
			Hotlines:         r.Crisis.Hotlines,
			Therapists:       therapists,
			SOSMailSent:      r.Crisis.SOSMailSent,
		})
	case KindChat, KindBusy:
		return json.Marshal(replyBody{Reply: r.Reply})
	default:
		return nil, fmt.Errorf("chatbot: unknown result kind %q", r.Kind)
	}
}
