// Package imapclient implements the IMAP mail source.
package imapclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	maildomain "mailvault/internal/mail/domain"
)

const dialTimeout = 10 * time.Second

// Source fetches recent messages from one IMAP mailbox. It implements
// domain.MailSource.
type Source struct {
	Host     string
	Port     int
	Username string
	Password string
}

// New returns a mail source bound to the given credentials.
func New(host string, port int, username, password string) *Source {
	return &Source{Host: host, Port: port, Username: username, Password: password}
}

// FetchNew connects, authenticates, downloads the newest max messages from
// INBOX and logs out. The fetch is not resumable: any failure is surfaced
// and the whole cycle is retried on the next sync.
func (s *Source) FetchNew(ctx context.Context, max int) ([]maildomain.RawMessage, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("%w: select INBOX: %v", maildomain.ErrAdapterUnavailable, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if uint32(max) < mbox.Messages {
		from = mbox.Messages - uint32(max) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var fetched []maildomain.RawMessage
	for msg := range messages {
		if msg == nil {
			continue
		}
		fetched = append(fetched, s.parseMessage(msg, section))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", maildomain.ErrAdapterUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", maildomain.ErrAdapterUnavailable, err)
	}

	return fetched, nil
}

func (s *Source) connect(ctx context.Context) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	dialer := &net.Dialer{Timeout: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	tlsConfig := &tls.Config{ServerName: s.Host}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", maildomain.ErrAdapterUnavailable, addr, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", maildomain.ErrAdapterUnavailable, err)
	}
	c.Timeout = dialTimeout * 3

	if err := c.Login(s.Username, s.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login: %v", maildomain.ErrAuthFailure, err)
	}

	return c, nil
}

func (s *Source) parseMessage(msg *imap.Message, section *imap.BodySectionName) maildomain.RawMessage {
	raw := maildomain.RawMessage{Date: time.Now().UTC()}

	if env := msg.Envelope; env != nil {
		raw.Subject = env.Subject
		raw.MessageID = env.MessageId
		if !env.Date.IsZero() {
			raw.Date = env.Date.UTC()
		}
		if len(env.From) > 0 {
			raw.From = formatAddress(env.From[0])
		}
		for _, addr := range env.To {
			raw.To = append(raw.To, formatAddress(addr))
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return raw
	}
	content, err := io.ReadAll(body)
	if err != nil || len(content) == 0 {
		return raw
	}

	entity, err := message.Read(bytes.NewReader(content))
	if err != nil {
		// Fall back to a best-effort plain read of the raw RFC 822 body.
		if m, err := mail.ReadMessage(bytes.NewReader(content)); err == nil {
			b, _ := io.ReadAll(m.Body)
			raw.BodyPlain = string(b)
		} else {
			log.Printf("[IMAP] unparseable message uid=%d: %v", msg.Uid, err)
		}
		return raw
	}

	parseEntity(entity, &raw)
	return raw
}

// parseEntity walks a MIME entity collecting the first text/plain and
// text/html parts.
func parseEntity(entity *message.Entity, raw *maildomain.RawMessage) {
	mediaType, _, _ := entity.Header.ContentType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			parseEntity(part, raw)
		}
	case mediaType == "text/plain" && raw.BodyPlain == "":
		b, _ := io.ReadAll(entity.Body)
		raw.BodyPlain = string(b)
	case mediaType == "text/html" && raw.BodyHTML == "":
		b, _ := io.ReadAll(entity.Body)
		raw.BodyHTML = string(b)
	}
}

func formatAddress(addr *imap.Address) string {
	if addr == nil {
		return ""
	}
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}
