package youtube

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/transcript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Welcome back to the channel</text>
<text start="2.6" dur="3">today we&amp;#39;re looking at
 Go generics</text>
<text start="5.6" dur="1"> </text>
</transcript>`

const trackListFixture = `<?xml version="1.0" encoding="utf-8" ?><transcript_list docid="1">
<track id="0" name="" lang_code="de" lang_original="Deutsch" lang_translated="German" lang_default="true"/>
<track id="1" name="" lang_code="en" lang_original="English" lang_translated="English" kind="asr"/>
<track id="2" name="Director" lang_code="en-GB" lang_original="English (UK)" lang_translated="English (UK)"/>
</transcript_list>`

// captionServer answers the track list request with list and every track
// request with fixture, recording the track queries it saw.
func captionServer(t *testing.T, list string, seen chan<- url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") == "list" {
			_, _ = io.WriteString(w, list)
			return
		}
		if seen != nil {
			seen <- q
		}
		_, _ = io.WriteString(w, fixture)
	}))
}

func TestFetch_ParsesSegments(t *testing.T) {
	seen := make(chan url.Values, 1)
	server := captionServer(t, `<transcript_list><track id="0" name="" lang_code="en" lang_default="true"/></transcript_list>`, seen)
	defer server.Close()

	p := New(server.URL, "en", 5*time.Second)
	segments, err := p.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, transcript.Segment{Text: "Welcome back to the channel", Start: 0.5, Duration: 2.1}, segments[0])
	assert.Equal(t, "today we're looking at Go generics", segments[1].Text)
	assert.Equal(t, 2.6, segments[1].Start)

	q := <-seen
	assert.Equal(t, "abc123", q.Get("v"))
	assert.Equal(t, "en", q.Get("lang"))
}

func TestFetch_SelectsTrackFromList(t *testing.T) {
	tests := []struct {
		name     string
		language string
		wantLang string
		wantName string
		wantKind string
	}{
		{name: "exact automatic over regional", language: "en", wantLang: "en", wantKind: "asr"},
		{name: "regional language", language: "en-GB", wantLang: "en-GB", wantName: "Director"},
		{name: "exact language", language: "de", wantLang: "de"},
		{name: "no match falls back to default", language: "fr", wantLang: "de"},
		{name: "no language uses default", language: "", wantLang: "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(chan url.Values, 1)
			server := captionServer(t, trackListFixture, seen)
			defer server.Close()

			segments, err := New(server.URL, tt.language, time.Second).Fetch(context.Background(), "vid")
			require.NoError(t, err)
			assert.Len(t, segments, 2)

			q := <-seen
			assert.Equal(t, tt.wantLang, q.Get("lang"))
			assert.Equal(t, tt.wantName, q.Get("name"))
			assert.Equal(t, tt.wantKind, q.Get("kind"))
		})
	}
}

func TestPickTrack_PrefersUploadedCaptions(t *testing.T) {
	tracks := []track{
		{LangCode: "en", Kind: "asr"},
		{LangCode: "en", Name: "Official"},
	}
	got, ok := pickTrack(tracks, "EN")
	require.True(t, ok)
	assert.Equal(t, "Official", got.Name)

	_, ok = pickTrack(nil, "en")
	assert.False(t, ok)
}

func TestFetch_NoTracksIsUnavailable(t *testing.T) {
	server := captionServer(t, `<transcript_list docid="1"></transcript_list>`, nil)
	defer server.Close()

	_, err := New(server.URL, "en", time.Second).Fetch(context.Background(), "vid")
	assert.ErrorIs(t, err, transcript.ErrUnavailable)
}

func TestFetch_EmptyBodyIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := New(server.URL, "en", time.Second).Fetch(context.Background(), "novideo")
	require.Error(t, err)
	assert.ErrorIs(t, err, transcript.ErrUnavailable)
	assert.ErrorIs(t, err, siftErrors.ErrNotFound)
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusNotFound, want: siftErrors.ErrNotFound},
		{status: http.StatusTooManyRequests, want: siftErrors.ErrTransient},
		{status: http.StatusBadGateway, want: siftErrors.ErrTransient},
		{status: http.StatusForbidden, want: siftErrors.ErrInternal},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := New(server.URL, "", time.Second).Fetch(context.Background(), "vid")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		server.Close()
	}
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := parse([]byte("<transcript><text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, siftErrors.ErrInternal)
}
