package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends the transactional account mails over SMTP. When no host is
// configured (local dev) sends become no-ops so signup still works.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string

	clientURL string
}

func NewMailer(host string, port int, user, pass, from, clientURL string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, clientURL: clientURL}
}

func (m *Mailer) SendVerificationEmail(to, username, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", m.clientURL, token)
	body := fmt.Sprintf(
		"Welcome to Socket Talk, %s!\n\n"+
			"Thank you for signing up. To get started, please verify your email address:\n\n"+
			"%s\n\n"+
			"This verification link will expire in 24 hours.\n"+
			"If you didn't create an account with Socket Talk, you can safely ignore this email.\n",
		username, verificationURL)

	return m.send(to, "Verify Your Email Address - Socket Talk", body)
}

func (m *Mailer) SendPasswordResetEmail(to, username, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.clientURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"We received a request to reset your password. Use the link below to create a new one:\n\n"+
			"%s\n\n"+
			"This password reset link will expire in 1 hour.\n"+
			"If you didn't request a password reset, you can safely ignore this email.\n",
		username, resetURL)

	return m.send(to, "Reset Your Password - Socket Talk", body)
}

func (m *Mailer) send(to, subject, body string) error {
	if m.host == "" {
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(addr, auth, m.user, []string{to}, []byte(msg))
}
