package notify

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	from string
	to   []string
	data string
}

// fakeSMTP accepts one session: no STARTTLS, no AUTH.
func fakeSMTP(t *testing.T) (string, int, <-chan received) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	out := make(chan received, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		var got received
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 HELP")
			case strings.HasPrefix(cmd, "MAIL FROM:"):
				got.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "RCPT TO:"):
				got.to = append(got.to, strings.Trim(line[len("RCPT TO:"):], "<> "))
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				got.data = string(data)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- got
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port, out
}

func TestSMTPMailerSendsPlainText(t *testing.T) {
	host, port, out := fakeSMTP(t)
	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, From: "leads@example.com"})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		To:      []string{"seller@example.com"},
		Subject: "Your Property Evaluation",
		Text:    "Hello Dana,\n\nEstimated Cash Offer: $99,000",
	})
	require.NoError(t, err)

	got := <-out
	assert.Equal(t, "leads@example.com", got.from)
	assert.Equal(t, []string{"seller@example.com"}, got.to)
	assert.Contains(t, got.data, "Subject: Your Property Evaluation")
	assert.Contains(t, got.data, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, got.data, "Estimated Cash Offer: $99,000")
}

func TestComposeMarkdownAddsHTMLPart(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Username: "team@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "team@example.com", m.From())

	raw, err := m.compose(Message{
		To:       []string{"team@example.com"},
		Subject:  "New Property Lead + AI Appraisal",
		Text:     "INTERNAL AI APPRAISAL\n=====\n\n- High: Roof (Mitigation: replace)\n",
		Markdown: true,
	})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain; charset=utf-8")
	assert.Contains(t, s, "text/html; charset=utf-8")
	assert.Contains(t, s, "<h1>INTERNAL AI APPRAISAL</h1>")
	assert.Contains(t, s, "<li>High: Roof (Mitigation: replace)</li>")
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{})
	assert.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)
}

func TestSendRequiresRecipients(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "a@example.com"})
	require.NoError(t, err)
	assert.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}
