package notifications

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/anjiri1684/tutor_marketplace/models"
	"gopkg.in/gomail.v2"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers HTML notifications over SMTP. Sends run in the background;
// Wait blocks until they have finished.
type Mailer struct {
	dialer     sender
	fromEmail  string
	fromName   string
	inProgress sync.WaitGroup
}

func NewMailer(host string, port int, user, password, fromEmail, fromName string) (*Mailer, error) {
	if host == "" || fromEmail == "" {
		return nil, fmt.Errorf("email service not configured: missing SMTP host or sender address")
	}
	log.Printf("✅ Email service initialized (%s:%d as %s)", host, port, fromEmail)
	return &Mailer{
		dialer:    gomail.NewDialer(host, port, user, password),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// Notify queues an email to the user. Users without a usable address are skipped.
func (m *Mailer) Notify(to models.User, subject, htmlBody string) {
	if to.Email == "" || !strings.Contains(to.Email, "@") {
		log.Printf("⚠️ Skipping email %q: user %s has no valid address", subject, to.ID)
		return
	}

	msg := m.compose(to, subject, htmlBody)
	m.inProgress.Add(1)
	go func() {
		defer m.inProgress.Done()
		if err := m.dialer.DialAndSend(msg); err != nil {
			log.Printf("🔥 Failed to send email to %s: %v", to.Email, err)
			return
		}
		log.Printf("✅ Email sent successfully to %s", to.Email)
	}()
}

func (m *Mailer) compose(to models.User, subject, htmlBody string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, m.fromName)
	msg.SetAddressHeader("To", to.Email, recipientName(to))
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return msg
}

func (m *Mailer) Wait() { m.inProgress.Wait() }

func recipientName(u models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email[:strings.Index(u.Email, "@")]
}
