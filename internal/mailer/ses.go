// Package mailer sends case replies as raw MIME email through Amazon SES.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/jarrod-lowe/connect-email-bridge/internal/email"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoAttachmentStore is returned when files are requested but no bucket is configured.
var ErrNoAttachmentStore = errors.New("no attachment store configured")

// SESAPI abstracts the SES operation used by SESSender for dependency inversion.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// ObjectGetter reads stored attachment files.
type ObjectGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// FileRef names a stored file to attach to a reply.
type FileRef struct {
	// Location is relative to the attachments prefix.
	Location string
	Name     string
}

// SESSender composes and sends replies.
type SESSender struct {
	api    SESAPI
	store  ObjectGetter
	source string
	bucket string
	prefix string
}

// NewSESSender creates a sender that mails from source. Attachments are read
// from bucket under prefix; bucket may be empty when replies never carry files.
func NewSESSender(api SESAPI, store ObjectGetter, source, bucket, prefix string) *SESSender {
	return &SESSender{
		api:    api,
		store:  store,
		source: source,
		bucket: bucket,
		prefix: prefix,
	}
}

// Send attaches files to out, sends it and returns the SES message id.
// An empty out.From is replaced by the configured source address.
func (s *SESSender) Send(ctx context.Context, out email.OutboundEmail, files []FileRef) (string, error) {
	ctx, span := tracing.Tracer("connect-email-mailer").Start(ctx, "mailer.Send",
		trace.WithAttributes(
			attribute.String("to", out.To),
			attribute.Int("file_count", len(files)),
		))
	defer span.End()

	if out.From == "" {
		out.From = s.source
	}

	for _, f := range files {
		att, err := s.load(ctx, f)
		if err != nil {
			tracing.RecordError(span, err)
			return "", err
		}
		out.Attachments = append(out.Attachments, att)
	}

	raw, err := email.Compose(out)
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("compose reply: %w", err)
	}

	source := email.StripAddress(out.From)
	resp, err := s.api.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       &source,
		Destinations: []string{email.StripAddress(out.To)},
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("send raw email to %s: %w", out.To, err)
	}

	var messageID string
	if resp.MessageId != nil {
		messageID = *resp.MessageId
	}
	span.SetAttributes(attribute.String("message_id", messageID))
	return messageID, nil
}

func (s *SESSender) load(ctx context.Context, f FileRef) (email.Attachment, error) {
	if s.bucket == "" {
		return email.Attachment{}, fmt.Errorf("%w: %s", ErrNoAttachmentStore, f.Name)
	}

	key := path.Join(s.prefix, f.Location)
	data, err := s.store.Get(ctx, s.bucket, key)
	if err != nil {
		return email.Attachment{}, fmt.Errorf("load attachment %q: %w", f.Name, err)
	}

	name := f.Name
	if name == "" {
		name = path.Base(f.Location)
	}
	return email.Attachment{
		Name:        name,
		ContentType: mime.TypeByExtension(path.Ext(name)),
		Data:        data,
		Size:        int64(len(data)),
	}, nil
}
