package email

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/gemini-chat/internal/models"
)

func TestSendText_RequiresHost(t *testing.T) {
	err := SendText(SMTPConfig{}, "a@example.com", "s", "b")
	assert.Error(t, err)
}

func TestWelcomeMailer_SendsInBackground(t *testing.T) {
	type sent struct {
		addr string
		from string
		to   []string
		msg  string
	}
	got := make(chan sent, 1)

	m := NewWelcomeMailer(SMTPConfig{Host: "mail.local", Port: 2525, From: "noreply@example.com"}, nil)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, a, "no auth without a user")
		got <- sent{addr: addr, from: from, to: to, msg: string(msg)}
		return nil
	}

	m.Welcome(models.User{Name: "Ana", Email: "ana@x.com"})

	select {
	case s := <-got:
		assert.Equal(t, "mail.local:2525", s.addr)
		assert.Equal(t, "noreply@example.com", s.from)
		assert.Equal(t, []string{"ana@x.com"}, s.to)
		assert.True(t, strings.HasPrefix(s.msg, "From: noreply@example.com\r\n"))
		assert.Contains(t, s.msg, "Subject: Welcome to Gemini Chat\r\n")
		assert.Contains(t, s.msg, "Hello Ana,\r\n")
	case <-time.After(2 * time.Second):
		require.FailNow(t, "welcome mail was not sent")
	}
}
