package email

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/jarrod-lowe/connect-email-bridge/internal/charset"
	"github.com/jarrod-lowe/connect-email-bridge/internal/htmlstrip"
)

func init() {
	message.CharsetReader = charset.Reader
}

// Parse decomposes a raw RFC 5322 message.
//
// Multipart messages are walked leaf by leaf in order. A part whose
// Content-Disposition mentions "attachment" is collected as an Attachment;
// text/plain parts are decoded and appended to Body. A single-part message uses
// its whole payload as the body. When a multipart message carries no text/plain
// part at all, the tag-stripped text of its text/html parts is used instead.
func Parse(raw []byte) (*InboundEmail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	defer mr.Close()

	parsed := &InboundEmail{
		From:    headerText(mr.Header.Header, "From"),
		Subject: subject(mr.Header),
	}
	mediaType, _, _ := mr.Header.ContentType()
	parsed.Multipart = strings.HasPrefix(strings.ToLower(mediaType), "multipart/")

	var body strings.Builder
	var htmlParts []string
	sawPlain := false

	for index := 1; ; index++ {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrMalformedMessage, index, err)
		}

		header := partHeader(part.Header)
		content, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrMalformedMessage, index, err)
		}

		if !parsed.Multipart {
			parsed.appendText(&body, content)
			continue
		}

		if isAttachment(header) {
			parsed.Attachments = append(parsed.Attachments, newAttachment(header, content, index))
			continue
		}

		partType, _, _ := header.ContentType()
		switch strings.ToLower(partType) {
		case "text/plain":
			sawPlain = true
			parsed.appendText(&body, content)
		case "text/html":
			text, _ := charset.DecodeText(content)
			htmlParts = append(htmlParts, text)
		}
	}

	parsed.Body = body.String()
	if parsed.Multipart && !sawPlain && len(htmlParts) > 0 {
		stripped := make([]string, 0, len(htmlParts))
		for _, h := range htmlParts {
			stripped = append(stripped, htmlstrip.String(h))
		}
		parsed.Body = strings.Join(stripped, "\n")
	}

	return parsed, nil
}

func (e *InboundEmail) appendText(body *strings.Builder, content []byte) {
	text, fellBack := charset.DecodeText(content)
	if fellBack {
		e.EncodingFallback = true
	}
	body.WriteString(text)
}

// partHeader returns the generic header behind a mail part header.
func partHeader(h mail.PartHeader) message.Header {
	switch h := h.(type) {
	case *mail.InlineHeader:
		return h.Header
	case *mail.AttachmentHeader:
		return h.Header
	}
	return message.Header{}
}

func isAttachment(h message.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Disposition")), "attachment")
}

func newAttachment(h message.Header, data []byte, index int) Attachment {
	ah := mail.AttachmentHeader{Header: h}
	name, err := ah.Filename()
	if err != nil || strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("attachment-%d", index)
	}

	contentType, _, err := h.ContentType()
	if err != nil || contentType == "" {
		contentType = "application/octet-stream"
	}

	return Attachment{
		Name:        name,
		ContentType: strings.ToLower(contentType),
		Data:        data,
		Size:        int64(len(data)),
	}
}

func subject(h mail.Header) string {
	if s, err := h.Subject(); err == nil {
		return s
	}
	return h.Get("Subject")
}

// headerText decodes RFC 2047 words, keeping the raw value when decoding fails.
func headerText(h message.Header, key string) string {
	if s, err := h.Text(key); err == nil {
		return s
	}
	return h.Get(key)
}
