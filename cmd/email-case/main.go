// Package main implements the email-case Lambda handler. It turns raw inbound
// emails dropped in S3 into Connect cases.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	"github.com/aws/aws-sdk-go-v2/service/connectcases"
	"github.com/aws/aws-sdk-go-v2/service/customerprofiles"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jarrod-lowe/connect-email-bridge/internal/attachment"
	"github.com/jarrod-lowe/connect-email-bridge/internal/cases"
	"github.com/jarrod-lowe/connect-email-bridge/internal/config"
	"github.com/jarrod-lowe/connect-email-bridge/internal/email"
	"github.com/jarrod-lowe/connect-email-bridge/internal/profile"
	"github.com/jarrod-lowe/connect-email-bridge/internal/storage"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

var logger = logging.New()

// Response is the fixed result returned to the Lambda runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ObjectStore abstracts S3 access for dependency inversion.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

// ProfileResolver finds or creates the customer profile for a sender.
type ProfileResolver interface {
	Resolve(ctx context.Context, email string) (profileID string, created bool, err error)
}

// CaseCreator opens cases and adds comments to them.
type CaseCreator interface {
	CreateCase(ctx context.Context, customerARN, title string) (*cases.Case, error)
	PostComment(ctx context.Context, caseID, body string) (string, error)
}

// AttachmentUploader attaches files to a case.
type AttachmentUploader interface {
	Upload(ctx context.Context, resourceARN string, att email.Attachment) (string, error)
}

// handler implements the email-case logic.
type handler struct {
	store     ObjectStore
	profiles  ProfileResolver
	cases     CaseCreator
	uploader  AttachmentUploader
	cfg       *config.Ingest
	accountID func(ctx context.Context) (string, error)
}

// newHandler creates a new handler.
func newHandler(store ObjectStore, profiles ProfileResolver, caseCreator CaseCreator, uploader AttachmentUploader, cfg *config.Ingest) *handler {
	return &handler{
		store:     store,
		profiles:  profiles,
		cases:     caseCreator,
		uploader:  uploader,
		cfg:       cfg,
		accountID: invokedAccountID,
	}
}

// invokedAccountID reads the account id from the invoked function ARN.
func invokedAccountID(ctx context.Context) (string, error) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return "", errors.New("no lambda context")
	}
	return profile.AccountIDFromARN(lc.InvokedFunctionArn)
}

// handle processes every record of an S3 notification in order. The first
// failing record aborts the invocation.
func (h *handler) handle(ctx context.Context, event events.S3Event) (Response, error) {
	ctx, span := tracing.Tracer("connect-email-case").Start(ctx, "EmailCaseHandler")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(event.Records)))

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := storage.DecodeKey(record.S3.Object.Key)

		if err := h.processRecord(ctx, bucket, key); err != nil {
			logger.ErrorContext(ctx, "Failed to process email",
				slog.String("bucket", bucket),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			tracing.RecordError(span, err)
			return Response{}, err
		}
	}

	return Response{StatusCode: http.StatusOK, Body: "Sent!"}, nil
}

// processRecord turns one stored email into a case with a comment and attachments.
func (h *handler) processRecord(ctx context.Context, bucket, key string) error {
	raw, err := h.store.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetch email: %w", err)
	}

	msg, err := email.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}
	if msg.EncodingFallback {
		logger.InfoContext(ctx, "Body decoded as Latin-1",
			slog.String("key", key),
		)
	}

	sender := msg.Sender()
	profileID, created, err := h.profiles.Resolve(ctx, sender)
	if err != nil {
		return fmt.Errorf("resolve profile for %s: %w", sender, err)
	}
	logger.InfoContext(ctx, "Resolved customer profile",
		slog.String("profile_id", profileID),
		slog.Bool("created", created),
	)

	accountID, err := h.accountID(ctx)
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	customerARN := profile.ARN(h.cfg.Region, accountID, h.cfg.ProfileDomain, profileID)

	c, err := h.cases.CreateCase(ctx, customerARN, msg.Subject)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Created case",
		slog.String("case_id", c.ID),
		slog.String("profile_id", profileID),
	)

	if _, err := h.cases.PostComment(ctx, c.ID, msg.Body); err != nil {
		return err
	}

	for _, att := range msg.Attachments {
		if err := h.attach(ctx, c, bucket, key, att); err != nil {
			return err
		}
	}
	return nil
}

// attach uploads att to the case, keeping it in S3 when Connect rejects the file.
func (h *handler) attach(ctx context.Context, c *cases.Case, bucket, key string, att email.Attachment) error {
	fileID, err := h.uploader.Upload(ctx, c.ARN, att)
	if err == nil {
		logger.InfoContext(ctx, "Attached file to case",
			slog.String("case_id", c.ID),
			slog.String("file_id", fileID),
			slog.String("file_name", att.Name),
		)
		return nil
	}
	if !attachment.IsFallback(err) {
		return fmt.Errorf("attach %q to case %s: %w", att.Name, c.ID, err)
	}

	fallbackKey := storage.AttachmentKey(h.cfg.AttachmentPrefix, key, att.Name)
	url, putErr := h.store.Put(ctx, bucket, fallbackKey, att.Data, att.ContentType)
	if putErr != nil {
		return fmt.Errorf("store rejected attachment %q: %w", att.Name, putErr)
	}
	logger.InfoContext(ctx, "Stored rejected attachment in S3",
		slog.String("case_id", c.ID),
		slog.String("file_name", att.Name),
		slog.String("url", url),
		slog.String("reason", err.Error()),
	)
	return nil
}

func main() {
	ctx := context.Background()

	result, err := awsinit.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize", slog.String("error", err.Error()))
		panic(err)
	}

	cfg, err := config.LoadIngest(os.Getenv)
	if err != nil {
		logger.Error("FATAL: Failed to load configuration", slog.String("error", err.Error()))
		panic(err)
	}

	store := storage.NewS3Store(s3.NewFromConfig(result.Config))
	directory := profile.NewDirectory(customerprofiles.NewFromConfig(result.Config), cfg.ProfileDomain)
	caseClient := cases.NewClient(connectcases.NewFromConfig(result.Config), cfg.CasesDomain, cfg.CaseTemplate)

	// Presigned PUTs carry their own authorisation, so the client is not signed
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	uploader := attachment.NewUploader(connect.NewFromConfig(result.Config), httpClient, cfg.ConnectInstanceID)

	h := newHandler(store, directory, caseClient, uploader, cfg)
	result.Start(h.handle)
}
