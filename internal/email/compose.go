package email

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

// signatureCID is referenced by the HTML alternative for a signature image that
// mail templates may attach.
const signatureCID = "firma"

// Compose renders a reply as a multipart/mixed message holding a
// multipart/alternative (text/plain and text/html) followed by one part per
// attachment.
func Compose(out OutboundEmail) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(out.Subject)
	h.SetAddressList("From", []*mail.Address{address(out.From)})
	h.SetAddressList("To", []*mail.Address{address(out.To)})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}

	alt, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create alternative: %w", err)
	}
	if err := writeInline(alt, "text/plain", out.Text); err != nil {
		return nil, err
	}
	if err := writeInline(alt, "text/html", HTMLBody(out.Text)); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, fmt.Errorf("close alternative: %w", err)
	}

	for _, att := range out.Attachments {
		if err := writeAttachment(mw, att); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

// HTMLBody wraps escaped text in the HTML alternative used for replies.
func HTMLBody(text string) string {
	return "<html><head></head><body><p>" + html.EscapeString(text) +
		`<img src="cid:` + signatureCID + `">` + "</p></body></html>"
}

func address(s string) *mail.Address {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr
	}
	return &mail.Address{Address: s}
}

func writeInline(iw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return w.Close()
}

func writeAttachment(mw *mail.Writer, att Attachment) error {
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var h mail.AttachmentHeader
	h.SetContentType(contentType, nil)
	h.SetFilename(att.Name)
	w, err := mw.CreateAttachment(h)
	if err != nil {
		return fmt.Errorf("create attachment %q: %w", att.Name, err)
	}
	if _, err := w.Write(att.Data); err != nil {
		w.Close()
		return fmt.Errorf("write attachment %q: %w", att.Name, err)
	}
	return w.Close()
}
