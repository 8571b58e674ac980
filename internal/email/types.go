// Package email decomposes inbound messages and composes outbound replies.
package email

import "errors"

// ErrMalformedMessage is returned when raw bytes cannot be read as a message.
var ErrMalformedMessage = errors.New("malformed message")

// Attachment is a file carried by a message part.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
	// Size is the decoded payload length in bytes.
	Size int64
}

// InboundEmail is the decomposed form of a raw inbound message.
type InboundEmail struct {
	// From is the raw (RFC 2047 decoded) From header.
	From    string
	Subject string
	// Body is every text/plain part, decoded and concatenated in message order.
	Body        string
	Attachments []Attachment
	Multipart   bool
	// EncodingFallback is true when any body part had to be read as Latin-1.
	EncodingFallback bool
}

// Sender returns the bare address of the From header.
func (e *InboundEmail) Sender() string {
	return StripAddress(e.From)
}

// OutboundEmail describes a reply to be rendered by Compose.
type OutboundEmail struct {
	From        string
	To          string
	Subject     string
	Text        string
	Attachments []Attachment
}
