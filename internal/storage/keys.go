package storage

import (
	"path"
	"strings"
)

// AttachmentPrefix is the key prefix for attachments copied to object storage.
const AttachmentPrefix = "attachments"

// DecodeKey percent-decodes an S3 event object key twice. The event source
// encodes keys once more than the object name, so two rounds recover keys that
// were themselves URL-encoded. Each valid %XX escape is decoded on its own; an
// invalid escape is kept as written.
func DecodeKey(key string) string {
	return unescape(unescape(key))
}

func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// AttachmentKey returns the fallback key for an attachment of the given email object.
func AttachmentKey(prefix, objectKey, fileName string) string {
	if prefix == "" {
		prefix = AttachmentPrefix
	}
	return path.Join(prefix, objectKey, path.Base("/"+fileName))
}
