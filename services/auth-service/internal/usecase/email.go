package usecase

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"

	"github.com/vasapolrittideah/sello-auth-api/shared/mailer"
)

const (
	appName         = "SELLO"
	otpEmailSubject = "Welcome to SELLO!"
)

//go:embed templates/otp_email.html
var otpEmailHTML string

//go:embed templates/otp_email.txt
var otpEmailText string

var (
	otpEmailHTMLTemplate = template.Must(template.New("otp_email.html").Parse(otpEmailHTML))
	otpEmailTextTemplate = texttemplate.Must(texttemplate.New("otp_email.txt").Parse(otpEmailText))
)

type otpEmailData struct {
	AppName   string
	Code      string
	ExpiresIn string
}

// renderOTPEmail builds the reset email for to, with a plain-text part and an HTML alternative.
func renderOTPEmail(to, code string, expiresIn time.Duration) (mailer.Email, error) {
	data := otpEmailData{
		AppName:   appName,
		Code:      code,
		ExpiresIn: humanizeDuration(expiresIn),
	}

	var text, html bytes.Buffer
	if err := otpEmailTextTemplate.Execute(&text, data); err != nil {
		return mailer.Email{}, err
	}
	if err := otpEmailHTMLTemplate.Execute(&html, data); err != nil {
		return mailer.Email{}, err
	}

	return mailer.Email{
		To:       []string{to},
		Subject:  otpEmailSubject,
		Body:     text.String(),
		HTMLBody: html.String(),
	}, nil
}

// humanizeDuration renders whole minutes or hours, e.g. "10 minutes" or "1 hour".
func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
