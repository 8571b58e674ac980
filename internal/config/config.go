// Package config loads Lambda configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingVariable is returned when required environment variables are unset.
var ErrMissingVariable = errors.New("missing required environment variable")

// DefaultAttachmentPrefix is the S3 key prefix for attachments kept outside Connect.
const DefaultAttachmentPrefix = "attachments"

// Ingest configures the email-case function.
type Ingest struct {
	ConnectInstanceID string
	ProfileDomain     string
	CasesDomain       string
	CaseTemplate      string
	Region            string
	AttachmentPrefix  string
}

// Reply configures the email-reply function.
type Reply struct {
	ProfileDomain      string
	CasesDomain        string
	SourceEmail        string
	AttachmentsBucket  string
	AttachmentLocation string
}

// LoadIngest reads the email-case configuration through getenv (usually os.Getenv).
func LoadIngest(getenv func(string) string) (*Ingest, error) {
	r := reader{getenv: getenv}
	cfg := &Ingest{
		ConnectInstanceID: r.required("CONNECT_INSTANCE_ID"),
		ProfileDomain:     r.required("CUSTOMER_PROFILE_DOMAIN"),
		CasesDomain:       r.required("CASES_DOMAIN"),
		CaseTemplate:      r.required("CASE_TEMPLATE"),
		Region:            r.required("AWS_REGION"),
		AttachmentPrefix:  r.optional("ATTACHMENT_PREFIX", DefaultAttachmentPrefix),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadReply reads the email-reply configuration through getenv (usually os.Getenv).
func LoadReply(getenv func(string) string) (*Reply, error) {
	r := reader{getenv: getenv}
	cfg := &Reply{
		ProfileDomain:      r.required("CUSTOMER_PROFILE_DOMAIN"),
		CasesDomain:        r.required("CASES_DOMAIN"),
		SourceEmail:        r.required("SOURCE_EMAIL"),
		AttachmentsBucket:  r.optional("ATTACHMENTS_BUCKET", ""),
		AttachmentLocation: r.optional("CONNECT_ATTACHMENTS_LOCATION", ""),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader collects every missing key so one error names them all.
type reader struct {
	getenv  func(string) string
	missing []string
}

func (r *reader) required(key string) string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *reader) optional(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) err() error {
	if len(r.missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(r.missing, ", "))
}
