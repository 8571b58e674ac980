package profile

import (
	"errors"
	"testing"
)

func TestARN(t *testing.T) {
	got := ARN("us-east-1", "123456789012", "customers", "profile-123")
	want := "arn:aws:profile:us-east-1:123456789012:domains/customers/profiles/profile-123"
	if got != want {
		t.Errorf("ARN = %q, want %q", got, want)
	}
}

func TestIDFromARN(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"arn:aws:profile:us-east-1:123456789012:domains/customers/profiles/profile-123", "profile-123"},
		{"profile-123", "profile-123"},
		{"trailing/", ""},
	}
	for _, tc := range tests {
		if got := IDFromARN(tc.input); got != tc.want {
			t.Errorf("IDFromARN(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestAccountIDFromARN(t *testing.T) {
	id, err := AccountIDFromARN("arn:aws:lambda:us-east-1:123456789012:function:email-case")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "123456789012" {
		t.Errorf("account = %q, want %q", id, "123456789012")
	}

	for _, bad := range []string{"", "not-an-arn", "arn:aws:lambda:us-east-1"} {
		if _, err := AccountIDFromARN(bad); !errors.Is(err, ErrInvalidARN) {
			t.Errorf("AccountIDFromARN(%q) error = %v, want ErrInvalidARN", bad, err)
		}
	}
}
