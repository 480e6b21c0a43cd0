// Package itip extracts the scheduling envelope from iTIP message text:
// the METHOD, the attendee addresses and whether the message is a
// free-busy request. It deliberately reads the raw text instead of a full
// iCalendar parse, so malformed bodies still yield their recipients.
package itip

import (
	"regexp"
	"strings"
)

// Request status codes reported per recipient on outbox posts.
const (
	StatusSuccess          = "2.0;Success"
	StatusPending          = "1.1;Pending"
	StatusSent             = "1.2;Message delivered"
	StatusNoUserSupport    = "3.7;Invalid calendar user"
	StatusRecipientFailure = "5.1;Service unavailable"
)

var (
	attendeeRe = regexp.MustCompile(`(?im)^ATTENDEE[^:\r\n]*:mailto:([^\r\n]+)`)
	methodRe   = regexp.MustCompile(`(?im)^METHOD[^:\r\n]*:([A-Z-]+)`)
)

// Message is the parsed scheduling envelope.
type Message struct {
	Method    string
	Attendees []string
}

// Parse extracts the envelope from unfolded iTIP text. A missing METHOD
// defaults to REQUEST.
func Parse(body string) Message {
	msg := Message{Method: "REQUEST"}
	if m := methodRe.FindStringSubmatch(body); m != nil {
		msg.Method = strings.ToUpper(strings.TrimSpace(m[1]))
	}
	for _, m := range attendeeRe.FindAllStringSubmatch(body, -1) {
		addr := strings.TrimSpace(m[1])
		if addr != "" {
			msg.Attendees = append(msg.Attendees, addr)
		}
	}
	return msg
}

// IsFreeBusyRequest reports whether the body is a VFREEBUSY query: a
// free-busy component posted with METHOD:REQUEST.
func IsFreeBusyRequest(body string) bool {
	upper := strings.ToUpper(body)
	return strings.Contains(upper, "BEGIN:VFREEBUSY") &&
		Parse(body).Method == "REQUEST"
}
