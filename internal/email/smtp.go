package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/suPer8Hu/gemini-chat/internal/models"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// buildMessage renders a plain-text RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

func SendText(cfg SMTPConfig, to, subject, body string) error {
	return sendText(smtp.SendMail, cfg, to, subject, body)
}

func sendText(send sendFunc, cfg SMTPConfig, to, subject, body string) error {
	if !cfg.Enabled() {
		return fmt.Errorf("smtp: host not configured")
	}
	var a smtp.Auth
	if cfg.User != "" {
		a = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return send(addr, a, cfg.From, []string{to}, buildMessage(cfg.From, to, subject, body))
}

// WelcomeMailer greets new users. Mail goes out in the background and
// failures are only logged.
type WelcomeMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

func NewWelcomeMailer(cfg SMTPConfig, logger *zap.Logger) *WelcomeMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WelcomeMailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func welcomeBody(name string) string {
	return "Hello " + name + ",\n\n" +
		"Welcome to Gemini Chat. Your account has been successfully created.\n\n" +
		"If you did not request this account, please contact our support immediately.\n\n" +
		"Best regards,\n" +
		"Gemini Chat\n"
}

func (m *WelcomeMailer) Welcome(u models.User) {
	go func(to, name string) {
		if err := sendText(m.send, m.cfg, to, "Welcome to Gemini Chat", welcomeBody(name)); err != nil {
			m.logger.Warn("welcome mail failed", zap.String("to", to), zap.Error(err))
		}
	}(u.Email, u.Name)
}
