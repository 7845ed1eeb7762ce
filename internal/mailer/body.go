package mailer

import (
	"fmt"
	"html"
)

// ResetSubject is the subject line for password-reset mail.
const ResetSubject = "MernAuth Password Reset"

// ResetBody renders the HTML body for a password-reset email carrying the
// one-time passcode.
func ResetBody(username, code string) string {
	name := html.EscapeString(username)
	return fmt.Sprintf(`<html>
<body style="font-family: sans-serif; color: #252525;">
  <p>Hi %s,</p>
  <p>We received a request to reset the password for your account.
  If you made this request, please use this OTP code to reset the password:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">%s</p>
  <p>This code is only valid for 1 hour.</p>
  <p>Need help, or have questions? Contact our support, we'd love to help.</p>
</body>
</html>`, name, code)
}
