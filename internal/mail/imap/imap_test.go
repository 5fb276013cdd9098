package imap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "imap.example.com:993", withDefaultPort("imap.example.com"))
	assert.Equal(t, "imap.example.com:143", withDefaultPort("imap.example.com:143"))
	assert.Equal(t, config.DefaultMailIMAPServer, withDefaultPort(""))
}

func TestNewestUIDs(t *testing.T) {
	assert.Equal(t, []uint32{7, 9, 12}, newestUIDs([]uint32{12, 3, 9, 1, 7}, 3))
	assert.Equal(t, []uint32{1, 2}, newestUIDs([]uint32{2, 1}, 30))
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(config.MailConfig{IMAPServer: "mail.example.org"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.org:993", m.addr)
	assert.Equal(t, config.DefaultMailMailbox, m.folder)
}

func TestNew_InvalidTimeout(t *testing.T) {
	_, err := New(config.MailConfig{Timeout: "later"})
	assert.True(t, errors.Is(err, siftErrors.ErrInvalidInput))
}

func TestConnect_RequiresCredentials(t *testing.T) {
	m, err := New(config.MailConfig{})
	require.NoError(t, err)

	err = m.Connect(context.Background())
	assert.True(t, errors.Is(err, siftErrors.ErrInvalidInput))
}

func TestOperationsRequireConnection(t *testing.T) {
	m, err := New(config.MailConfig{})
	require.NoError(t, err)

	_, err = m.FetchRecent(context.Background(), 10, time.Time{})
	assert.True(t, errors.Is(err, siftErrors.ErrInternal))
	assert.NoError(t, m.Close())
}
