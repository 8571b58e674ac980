// Package charset decodes inbound email text.
//
// Bodies are decoded from their declared charset when one is known. Anything that
// is still not valid UTF-8 afterwards is read as ISO-8859-1, which accepts every
// byte sequence, so decoding never fails.
package charset

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DecodeText returns b as a string, reading it as UTF-8 when valid and as
// Latin-1 otherwise. The bool reports whether the Latin-1 fallback was used.
func DecodeText(b []byte) (string, bool) {
	if utf8.Valid(b) {
		return string(b), false
	}
	return string(decodeLatin1(b)), true
}

// DecodeReader wraps r with a decoder for the named charset.
// Returns decoded reader, whether an encoding problem occurred, and error.
//
// UTF-8, US-ASCII and empty labels pass through after validation (invalid
// content is re-read as Latin-1). Unknown labels return the raw content and
// report a problem so the caller can apply DecodeText.
func DecodeReader(r io.Reader, label string) (io.Reader, bool, error) {
	label = strings.ToLower(strings.TrimSpace(label))

	switch label {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, false, err
		}
		text, fellBack := DecodeText(content)
		return strings.NewReader(text), fellBack, nil
	}

	enc, err := lookupEncoding(label)
	if err != nil || enc == nil {
		content, readErr := io.ReadAll(r)
		if readErr != nil {
			return nil, false, readErr
		}
		return bytes.NewReader(content), true, nil
	}

	return transform.NewReader(r, enc.NewDecoder()), false, nil
}

// Reader has the signature of go-message's CharsetReader hook.
func Reader(label string, input io.Reader) (io.Reader, error) {
	r, _, err := DecodeReader(input, label)
	return r, err
}

func lookupEncoding(label string) (encoding.Encoding, error) {
	switch label {
	case "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	}
	return ianaindex.IANA.Encoding(label)
}

// decodeLatin1 converts ISO-8859-1 bytes to UTF-8.
func decodeLatin1(data []byte) []byte {
	result, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return data
	}
	return result
}
