package infra

import (
	"errors"
	"net/smtp"
	"testing"

	"cashpos/internal/config"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerDisabledWithoutHost(t *testing.T) {
	m := NewMailer(&config.Config{})
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.SendReport("a@b.c", "s", "b", ""), ErrMailerDisabled)
}

func TestMailerSendsThroughBreaker(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "smtp.local", SMTPPort: 25, SMTPUser: "pos@store.test"})
	var got *email.Email
	var gotAddr string
	m.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		got, gotAddr = e, addr
		return nil
	}

	require.NoError(t, m.SendReport("boss@store.test", "Close-out", "body", ""))
	assert.Equal(t, "smtp.local:25", gotAddr)
	assert.Equal(t, []string{"boss@store.test"}, got.To)
	assert.Equal(t, "pos@store.test", got.From)

	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("relay down") }
	for range DefaultCBConfig().FailureThreshold {
		_ = m.SendReport("boss@store.test", "s", "b", "")
	}
	assert.ErrorIs(t, m.SendReport("boss@store.test", "s", "b", ""), ErrCircuitOpen)
}
