package providers

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func testSender(user string, out *sent, err error) *SMTPSender {
	s := NewSMTPSender("smtp.example.com", 587, user, "secret", "xscrape@example.com")
	s.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*out = sent{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
		return err
	}
	return s
}

func TestSendBuildsMultipartMessage(t *testing.T) {
	var out sent
	s := testSender("bot", &out, nil)

	err := s.Send([]string{"a@example.com", "b@example.com"}, "Run report", "<p>hi</p>", "line one\nline two")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", out.addr)
	assert.NotNil(t, out.auth)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, out.to)
	assert.Contains(t, out.msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, out.msg, "Subject: Run report\r\n")
	assert.Contains(t, out.msg, "Date: Sun, 10 May 2026 12:00:00 +0000\r\n")
	assert.Contains(t, out.msg, "line one\r\nline two")
	assert.Contains(t, out.msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(out.msg, "--"+boundary+"--\r\n"))
}

func TestSendWithoutAuth(t *testing.T) {
	var out sent
	s := testSender("", &out, nil)

	require.NoError(t, s.Send([]string{"a@example.com"}, "s", "h", "p"))
	assert.Nil(t, out.auth)
}

func TestSendErrors(t *testing.T) {
	var out sent
	s := testSender("bot", &out, errors.New("connection refused"))

	assert.ErrorContains(t, s.Send([]string{"a@example.com"}, "s", "h", "p"), "connection refused")
	assert.Error(t, s.Send(nil, "s", "h", "p"))
}
