// Package notify renders and sends booking emails.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/ramsoftware/website-backend/pkg/queue"
)

// Raw HTML in descriptions is escaped: WithUnsafe is not set.
var md = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Markdown renders a visitor-supplied description to HTML.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

var notificationTmpl = template.Must(template.New("notification").Parse(`<h2>New project inquiry</h2>
<table>
<tr><td><strong>Name</strong></td><td>{{.FullName}}</td></tr>
<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
<tr><td><strong>Company</strong></td><td>{{.CompanyName}}</td></tr>
<tr><td><strong>Services</strong></td><td>{{.Services}}</td></tr>
<tr><td><strong>Budget</strong></td><td>{{.Budget}}</td></tr>
<tr><td><strong>Timeline</strong></td><td>{{.Timeline}}</td></tr>
<tr><td><strong>Urgency</strong></td><td>{{.Urgency}}</td></tr>
<tr><td><strong>Call</strong></td><td>{{.SelectedDate}}</td></tr>
{{if .Attachments}}<tr><td><strong>Attachments</strong></td><td>{{.Attachments}}</td></tr>{{end}}
</table>
<h3>Project description</h3>
{{.Description}}
<p><small>Booking {{.BookingID}} submitted {{.SubmittedAt}}</small></p>
`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Hi {{.FullName}},</p>
<p>Thanks for telling us about your project. We'll be in touch within 24 hours.</p>
{{if .SelectedDate}}<p>Your requested call time: <strong>{{.SelectedDate}}</strong></p>{{end}}
<p>RAM Software</p>
`))

type emailView struct {
	BookingID    string
	FullName     string
	Email        string
	CompanyName  string
	Services     string
	Budget       string
	Timeline     string
	Urgency      string
	SelectedDate string
	Attachments  string
	Description  template.HTML
	SubmittedAt  string
}

func viewOf(p queue.BookingNotificationPayload) (emailView, error) {
	desc, err := Markdown(p.Description)
	if err != nil {
		return emailView{}, err
	}
	return emailView{
		BookingID:    p.BookingID,
		FullName:     p.FullName,
		Email:        p.Email,
		CompanyName:  p.CompanyName,
		Services:     strings.Join(p.ServiceTypes, ", "),
		Budget:       p.Budget,
		Timeline:     p.Timeline,
		Urgency:      p.Urgency,
		SelectedDate: p.SelectedDate,
		Attachments:  strings.Join(p.Attachments, ", "),
		Description:  desc,
		SubmittedAt:  p.SubmittedAt.UTC().Format("2006-01-02 15:04 UTC"),
	}, nil
}

// BookingNotification builds the email telling the team about a booking.
// The visitor is the reply-to address.
func BookingNotification(p queue.BookingNotificationPayload, to []string) (Message, error) {
	v, err := viewOf(p)
	if err != nil {
		return Message{}, err
	}
	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, v); err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}
	subject := fmt.Sprintf("New inquiry: %s", p.FullName)
	if p.CompanyName != "" {
		subject += " (" + p.CompanyName + ")"
	}
	return Message{To: to, Subject: subject, HTML: buf.String(), ReplyTo: p.Email}, nil
}

// BookingConfirmation builds the acknowledgement sent to the visitor.
func BookingConfirmation(p queue.BookingNotificationPayload) (Message, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, p); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:      []string{p.Email},
		Subject: "We received your project inquiry",
		HTML:    buf.String(),
	}, nil
}
