package services

import (
	"fmt"
	"log"
	"net/smtp"

	"tripstars-api/internal/config"
)

// Mailer sends outbound email fire-and-forget: delivery failures are logged,
// never propagated. With no SMTP host configured every send is a logged no-op.
type Mailer struct {
	cfg *config.Config
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// defaultMailer is set at startup; a nil mailer logs and skips every send,
// which is also the test default.
var defaultMailer *Mailer

func SetMailer(m *Mailer) {
	defaultMailer = m
}

func Mail() *Mailer {
	return defaultMailer
}

func (m *Mailer) send(to, subject, body string) {
	if m == nil || m.cfg == nil || m.cfg.SMTPHost == "" {
		log.Printf("email: SMTP not configured, skipping %q to %s", subject, to)
		return
	}

	go func() {
		addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
		msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
			m.cfg.SMTPFrom, to, subject, body))

		var a smtp.Auth
		if m.cfg.SMTPUsername != "" {
			a = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
		}
		if err := smtp.SendMail(addr, a, m.cfg.SMTPFrom, []string{to}, msg); err != nil {
			log.Printf("email: failed to send %q to %s: %v", subject, to, err)
		}
	}()
}

// SendTaskAssigned notifies the assignee of a new or reassigned task.
func (m *Mailer) SendTaskAssigned(toEmail, toName, taskTitle, dueDate, assignedBy string) {
	m.send(toEmail, "New task assigned: "+taskTitle,
		fmt.Sprintf("Hi %s,\n\n%s assigned you the task %q, due %s.", toName, assignedBy, taskTitle, dueDate))
}

// SendTaskOverdue notifies the assignee of an overdue task.
func (m *Mailer) SendTaskOverdue(toEmail, toName, taskTitle, dueDate string) {
	m.send(toEmail, "Task overdue: "+taskTitle,
		fmt.Sprintf("Hi %s,\n\nThe task %q was due %s and is not completed yet.", toName, taskTitle, dueDate))
}

// SendCommentAdded notifies a task participant of a new comment.
func (m *Mailer) SendCommentAdded(toEmail, toName, taskTitle, commenter, preview string) {
	m.send(toEmail, "New comment on: "+taskTitle,
		fmt.Sprintf("Hi %s,\n\n%s commented on %q:\n\n%s", toName, commenter, taskTitle, preview))
}
