// Package youtube fetches video captions from YouTube's timedtext endpoint.
package youtube

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/transcript"
)

const maxBodyBytes = 8 << 20

type Provider struct {
	Client   *http.Client
	BaseURL  string
	Language string
}

func New(baseURL, language string, timeout time.Duration) *Provider {
	return &Provider{
		Client:   &http.Client{Timeout: timeout},
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Language: language,
	}
}

type timedText struct {
	XMLName xml.Name   `xml:"transcript"`
	Texts   []textNode `xml:"text"`
}

type textNode struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []track  `xml:"track"`
}

type track struct {
	Name        string `xml:"name,attr"`
	LangCode    string `xml:"lang_code,attr"`
	LangDefault string `xml:"lang_default,attr"`
	Kind        string `xml:"kind,attr"`
}

// Fetch lists the caption tracks of a video, picks one and downloads it.
func (p *Provider) Fetch(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	tracks, err := p.listTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	tr, ok := pickTrack(tracks, p.Language)
	if !ok {
		return nil, transcript.ErrUnavailable
	}

	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", tr.LangCode)
	if tr.Name != "" {
		q.Set("name", tr.Name)
	}
	if tr.Kind != "" {
		q.Set("kind", tr.Kind)
	}

	body, err := p.get(ctx, q)
	if err != nil {
		return nil, err
	}
	return parse(body)
}

func (p *Provider) listTracks(ctx context.Context, videoID string) ([]track, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", videoID)

	body, err := p.get(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, transcript.ErrUnavailable
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, siftErrors.Internal(fmt.Sprintf("decode caption track list: %v", err))
	}
	return list.Tracks, nil
}

// pickTrack ranks an exact language match above a regional one (en vs en-GB)
// and, within each, uploaded captions above automatic ones. Without a match it
// takes the video's default track, else the first listed.
func pickTrack(tracks []track, language string) (track, bool) {
	if len(tracks) == 0 {
		return track{}, false
	}

	language = strings.ToLower(strings.TrimSpace(language))
	if language != "" {
		var best track
		bestScore := 0
		for _, tr := range tracks {
			code := strings.ToLower(tr.LangCode)
			score := 0
			switch {
			case code == language:
				score = 2
			case strings.HasPrefix(code, language+"-"):
				score = 1
			default:
				continue
			}
			score *= 2
			if tr.Kind != "asr" {
				score++
			}
			if score > bestScore {
				best, bestScore = tr, score
			}
		}
		if bestScore > 0 {
			return best, true
		}
	}

	for _, tr := range tracks {
		if tr.LangDefault == "true" {
			return tr, true
		}
	}
	return tracks[0], true
}

func (p *Provider) get(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, siftErrors.InvalidInput(fmt.Sprintf("build transcript request: %v", err))
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, siftErrors.MapError(fmt.Errorf("transcript request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, transcript.ErrUnavailable
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, siftErrors.Transient(fmt.Sprintf("transcript provider returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, siftErrors.Internal(fmt.Sprintf("transcript provider returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, siftErrors.Transient(fmt.Sprintf("read transcript body: %v", err))
	}
	return body, nil
}

func parse(body []byte) ([]transcript.Segment, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, transcript.ErrUnavailable
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, siftErrors.Internal(fmt.Sprintf("decode transcript xml: %v", err))
	}

	segments := make([]transcript.Segment, 0, len(doc.Texts))
	for _, node := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(node.Body))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(node.Start, 64)
		dur, _ := strconv.ParseFloat(node.Dur, 64)
		segments = append(segments, transcript.Segment{
			Text:     strings.Join(strings.Fields(text), " "),
			Start:    start,
			Duration: dur,
		})
	}

	if len(segments) == 0 {
		return nil, transcript.ErrUnavailable
	}
	return segments, nil
}
