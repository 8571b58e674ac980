// Package attachment binds email attachments to cases through Amazon Connect
// attached-file uploads.
//
// An upload is three steps:
//  1. StartAttachedFileUpload reserves a slot and returns a presigned URL
//  2. the raw bytes are PUT to that URL with the headers the slot requires
//  3. CompleteAttachedFileUpload marks the file as available on the case
package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/connect"
	"github.com/aws/aws-sdk-go-v2/service/connect/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/jarrod-lowe/connect-email-bridge/internal/email"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Error types for attachment uploads.
var (
	// ErrAccessDenied is fatal: the function may not upload files at all.
	ErrAccessDenied = errors.New("attachment upload access denied")
	// ErrRejected means the slot request was refused for this file; the caller
	// should keep the file somewhere else.
	ErrRejected = errors.New("attachment rejected")
	// ErrUploadFailed is fatal: a slot was granted but the transfer did not finish.
	ErrUploadFailed = errors.New("attachment upload failed")
)

// IsFallback reports whether err allows the caller to fall back to another store.
func IsFallback(err error) bool {
	return errors.Is(err, ErrRejected)
}

// HTTPDoer abstracts HTTP client operations for dependency inversion.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ConnectAPI abstracts the Amazon Connect file operations for dependency inversion.
type ConnectAPI interface {
	StartAttachedFileUpload(ctx context.Context, params *connect.StartAttachedFileUploadInput, optFns ...func(*connect.Options)) (*connect.StartAttachedFileUploadOutput, error)
	CompleteAttachedFileUpload(ctx context.Context, params *connect.CompleteAttachedFileUploadInput, optFns ...func(*connect.Options)) (*connect.CompleteAttachedFileUploadOutput, error)
}

// Uploader uploads files against resources of one Connect instance.
type Uploader struct {
	api        ConnectAPI
	httpClient HTTPDoer // plain client for the presigned PUT (no signing)
	instanceID string
	newToken   func() string
}

// NewUploader creates a new Uploader.
func NewUploader(api ConnectAPI, httpClient HTTPDoer, instanceID string) *Uploader {
	return &Uploader{
		api:        api,
		httpClient: httpClient,
		instanceID: instanceID,
		newToken:   uuid.NewString,
	}
}

// Upload attaches att to the resource (a case ARN) and returns the file id.
func (u *Uploader) Upload(ctx context.Context, resourceARN string, att email.Attachment) (string, error) {
	ctx, span := tracing.Tracer("connect-email-attachment").Start(ctx, "attachment.Upload",
		trace.WithAttributes(
			attribute.String("file_name", att.Name),
			attribute.String("content_type", att.ContentType),
			attribute.Int64("size", int64(len(att.Data))),
		))
	defer span.End()

	slot, err := u.start(ctx, resourceARN, att)
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	if err := u.put(ctx, slot.UploadUrlMetadata, att.Data); err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	fileID := deref(slot.FileId)
	if _, err := u.api.CompleteAttachedFileUpload(ctx, &connect.CompleteAttachedFileUploadInput{
		InstanceId:            &u.instanceID,
		FileId:                &fileID,
		AssociatedResourceArn: &resourceARN,
	}); err != nil {
		err = fmt.Errorf("%w: complete %s: %v", ErrUploadFailed, fileID, err)
		tracing.RecordError(span, err)
		return "", err
	}

	span.SetAttributes(attribute.String("file_id", fileID))
	return fileID, nil
}

// start requests an upload slot and classifies refusals.
func (u *Uploader) start(ctx context.Context, resourceARN string, att email.Attachment) (*connect.StartAttachedFileUploadOutput, error) {
	// Size is measured from the payload, not taken from the part headers.
	size := int64(len(att.Data))
	token := u.newToken()

	out, err := u.api.StartAttachedFileUpload(ctx, &connect.StartAttachedFileUploadInput{
		InstanceId:            &u.instanceID,
		FileName:              &att.Name,
		FileSizeInBytes:       &size,
		FileUseCaseType:       types.FileUseCaseTypeAttachment,
		AssociatedResourceArn: &resourceARN,
		ClientToken:           &token,
	})
	if err != nil {
		return nil, classify(err)
	}
	if out.UploadUrlMetadata == nil || deref(out.UploadUrlMetadata.Url) == "" {
		return nil, fmt.Errorf("%w: no upload URL for %q", ErrRejected, att.Name)
	}
	return out, nil
}

// classify maps a slot request error onto the package error types. Only access
// denial is fatal; every other API refusal lets the caller fall back. Errors
// that are not API responses (cancelled context, transport) pass through.
func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("start attached file upload: %w", err)
	}
	if apiErr.ErrorCode() == "AccessDeniedException" {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRejected, apiErr.ErrorCode(), err)
}

// put sends data to the presigned URL with every header the slot requires.
func (u *Uploader) put(ctx context.Context, meta *types.UploadUrlMetadata, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, deref(meta.Url), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	for k, v := range meta.HeadersToInclude {
		req.Header.Set(k, v)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: presigned PUT returned status %d", ErrUploadFailed, resp.StatusCode)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
