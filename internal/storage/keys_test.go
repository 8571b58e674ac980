package storage

import (
	"net/url"
	"testing"
)

func TestDecodeKey_DoubleEncoded(t *testing.T) {
	originals := []string{
		"inbound/abc123",
		"inbound/with space.eml",
		"inbound/100%25 real.eml",
		"inbound/ünïcode.eml",
	}

	for _, original := range originals {
		t.Run(original, func(t *testing.T) {
			encoded := url.PathEscape(url.PathEscape(original))
			if got := DecodeKey(encoded); got != original {
				t.Errorf("DecodeKey(%q) = %q, want %q", encoded, got, original)
			}
		})
	}
}

func TestDecodeKey_SinglyEncodedDoesNotFail(t *testing.T) {
	// A literal "%" that was only encoded once decodes to "%zz" after the first
	// round; the second round must keep it rather than fail.
	encoded := url.PathEscape("inbound/%zz.eml")

	got := DecodeKey(encoded)
	if got != "inbound/%zz.eml" {
		t.Errorf("DecodeKey(%q) = %q, want %q", encoded, got, "inbound/%zz.eml")
	}
}

func TestDecodeKey_Plain(t *testing.T) {
	if got := DecodeKey("inbound/plain.eml"); got != "inbound/plain.eml" {
		t.Errorf("DecodeKey = %q, want unchanged", got)
	}
}

func TestDecodeKey_InvalidEscape(t *testing.T) {
	if got := DecodeKey("inbound/%G1"); got != "inbound/%G1" {
		t.Errorf("DecodeKey = %q, want unchanged", got)
	}
}

func TestAttachmentKey(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		objectKey string
		fileName  string
		want      string
	}{
		{"default prefix", "", "inbound/abc123", "report.pdf", "attachments/inbound/abc123/report.pdf"},
		{"custom prefix", "files", "abc123", "a.txt", "files/abc123/a.txt"},
		{"path in file name", "", "abc123", "../../etc/passwd", "attachments/abc123/passwd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := AttachmentKey(tc.prefix, tc.objectKey, tc.fileName); got != tc.want {
				t.Errorf("AttachmentKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeKey_MixedEscapes(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"valid before invalid", "inbound/a%20b%zz.eml", "inbound/a b%zz.eml"},
		{"double encoded with invalid", "inbound/a%2520b%25zz.eml", "inbound/a b%zz.eml"},
		{"trailing percent", "inbound/a%20b%", "inbound/a b%"},
		{"truncated escape", "inbound/a%2", "inbound/a%2"},
		{"plus kept", "inbound/a+b.eml", "inbound/a+b.eml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeKey(tc.key); got != tc.want {
				t.Errorf("DecodeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}
