package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/ramsoftware/website-backend/pkg/queue"
)

func samplePayload() queue.BookingNotificationPayload {
	return queue.BookingNotificationPayload{
		BookingID:    "b-1",
		FullName:     "Ada Lovelace",
		Email:        "ada@example.com",
		CompanyName:  "Engines & Co",
		ServiceTypes: []string{"web-development", "ai"},
		Budget:       "25k-50k",
		Timeline:     "asap",
		Urgency:      "high",
		SelectedDate: "2025-03-10T14:00",
		Description:  "We need **two** things:\n\n- a portal\n- <script>alert(1)</script>",
		SubmittedAt:  time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC),
	}
}

func TestBookingNotification(t *testing.T) {
	msg, err := BookingNotification(samplePayload(), []string{"team@ramsoftware.com"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "New inquiry: Ada Lovelace (Engines & Co)" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.ReplyTo != "ada@example.com" || len(msg.To) != 1 {
		t.Errorf("addresses = %v reply %q", msg.To, msg.ReplyTo)
	}
	for _, want := range []string{"<strong>two</strong>", "<li>a portal</li>", "web-development, ai", "Engines &amp; Co", "2025-03-05 10:30 UTC"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("html missing %q:\n%s", want, msg.HTML)
		}
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("raw html from the description was not escaped")
	}
}

func TestBookingConfirmation(t *testing.T) {
	msg, err := BookingConfirmation(samplePayload())
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.To) != 1 || msg.To[0] != "ada@example.com" {
		t.Errorf("to = %v", msg.To)
	}
	if !strings.Contains(msg.HTML, "2025-03-10T14:00") || !strings.Contains(msg.HTML, "Hi Ada Lovelace") {
		t.Errorf("html = %s", msg.HTML)
	}
}
