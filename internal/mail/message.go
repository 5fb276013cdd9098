package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"strings"

	"github.com/harunnryd/sift/internal/priority"
)

// RawMessage is one message as fetched from the mailbox.
type RawMessage struct {
	UID uint32
	Raw []byte
}

// Envelope is the header view of a message used for classification and the
// daily summary.
type Envelope struct {
	MessageID string
	From      string
	To        string
	Cc        string
	Subject   string
	Date      string
	Body      string
}

var wordDecoder = new(mime.WordDecoder)

// ParseEnvelope reads headers and the first text/plain body of raw.
func ParseEnvelope(raw []byte) (Envelope, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return Envelope{}, fmt.Errorf("parse message: %w", err)
	}

	env := Envelope{
		MessageID: strings.TrimSpace(msg.Header.Get("Message-ID")),
		From:      decodeHeader(msg.Header.Get("From")),
		To:        decodeHeader(msg.Header.Get("To")),
		Cc:        decodeHeader(msg.Header.Get("Cc")),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		Date:      strings.TrimSpace(msg.Header.Get("Date")),
	}

	body, err := plainText(msg.Header.Get("Content-Type"), msg.Body)
	if err == nil {
		env.Body = body
	}

	return env, nil
}

// Metadata is the rule engine's view of the envelope.
func (e Envelope) Metadata() priority.Metadata {
	return priority.Metadata{
		FromAddress: e.From,
		Subject:     e.Subject,
		IsReply:     strings.Contains(e.Subject, "Re:"),
		IsForward:   strings.Contains(e.Subject, "Fwd:"),
		HasCC:       e.Cc != "",
	}
}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(decoded)
}

func plainText(contentType string, body io.Reader) (string, error) {
	if contentType == "" {
		b, err := io.ReadAll(body)
		return string(b), err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		var out strings.Builder
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return out.String(), err
			}
			text, err := plainText(part.Header.Get("Content-Type"), part)
			if err == nil && text != "" {
				out.WriteString(text)
			}
		}
		return out.String(), nil
	}

	if mediaType != "text/plain" {
		return "", nil
	}

	b, err := io.ReadAll(body)
	return string(b), err
}
