package mailer

import "context"

// Mailer delivers a single HTML email. Implementations either send
// directly over SMTP or hand the job to a queue for the mail worker.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Job is the queued representation of an outbound email.
type Job struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}
