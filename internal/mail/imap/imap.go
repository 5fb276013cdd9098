// Package imap implements mail.Mailbox over an IMAP4rev1 server with TLS.
package imap

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/mail"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

type Mailbox struct {
	addr     string
	username string
	password string
	folder   string
	timeout  time.Duration

	mu      sync.Mutex
	c       *client.Client
	folders map[string]struct{}
}

func New(cfg config.MailConfig) (*Mailbox, error) {
	timeout, err := config.DurationOrDefault(cfg.Timeout, config.DefaultMailTimeout)
	if err != nil {
		return nil, siftErrors.InvalidInput(fmt.Sprintf("invalid mail timeout: %v", err))
	}

	folder := cfg.Mailbox
	if folder == "" {
		folder = config.DefaultMailMailbox
	}

	return &Mailbox{
		addr:     withDefaultPort(cfg.IMAPServer),
		username: cfg.Address,
		password: cfg.Password,
		folder:   folder,
		timeout:  timeout,
		folders:  make(map[string]struct{}),
	}, nil
}

func withDefaultPort(addr string) string {
	if addr == "" {
		return config.DefaultMailIMAPServer
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "993")
	}
	return addr
}

func (m *Mailbox) Connect(ctx context.Context) error {
	if m.username == "" || m.password == "" {
		return siftErrors.InvalidInput("email credentials not provided")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.c != nil {
		return nil
	}

	host, _, _ := net.SplitHostPort(m.addr)
	dialer := &net.Dialer{Timeout: m.timeout}
	c, err := client.DialWithDialerTLS(dialer, m.addr, &tls.Config{ServerName: host})
	if err != nil {
		return siftErrors.Transient(fmt.Sprintf("connect %s: %v", m.addr, err))
	}
	c.Timeout = m.timeout

	if err := c.Login(m.username, m.password); err != nil {
		_ = c.Logout()
		return siftErrors.WrapWithCategory(err, "imap login failed", siftErrors.ErrPermissionDenied)
	}

	m.c = c
	slog.Debug("IMAP connected", "addr", m.addr, "user", m.username)
	return nil
}

func (m *Mailbox) FetchRecent(ctx context.Context, limit int, since time.Time) ([]mail.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.client(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.Select(m.folder, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", m.folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search since %s: %w", since.Format("02-Jan-2006"), err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	uids = newestUIDs(uids, limit)

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var out []mail.RawMessage
	for msg := range ch {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			slog.Warn("Failed to read message body", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, mail.RawMessage{UID: msg.Uid, Raw: raw})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	slices.SortFunc(out, func(a, b mail.RawMessage) int {
		return cmp.Compare(b.UID, a.UID)
	})
	return out, nil
}

// newestUIDs keeps the limit highest uids, which are the most recent.
func newestUIDs(uids []uint32, limit int) []uint32 {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}

func (m *Mailbox) Move(ctx context.Context, uid uint32, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.client(ctx)
	if err != nil {
		return err
	}

	if err := m.ensureFolder(c, folder); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	if err := c.UidMove(seqset, folder); err != nil {
		return fmt.Errorf("move uid %d to %s: %w", uid, folder, err)
	}
	return nil
}

func (m *Mailbox) ensureFolder(c *client.Client, folder string) error {
	if _, ok := m.folders[folder]; ok {
		return nil
	}

	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", folder, ch)
	}()

	exists := false
	for info := range ch {
		if info.Name == folder {
			exists = true
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("list %s: %w", folder, err)
	}

	if !exists {
		if err := c.Create(folder); err != nil {
			return fmt.Errorf("create folder %s: %w", folder, err)
		}
		slog.Info("Created mail folder", "folder", folder)
	}

	m.folders[folder] = struct{}{}
	return nil
}

func (m *Mailbox) client(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.c == nil {
		return nil, siftErrors.Internal("mailbox not connected")
	}
	return m.c, nil
}

func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.c == nil {
		return nil
	}
	err := m.c.Logout()
	m.c = nil
	return err
}
