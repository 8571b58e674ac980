// Package main implements the email-reply Lambda handler. Comments added to a
// Connect case are mailed to the case's customer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/connectcases"
	"github.com/aws/aws-sdk-go-v2/service/customerprofiles"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jarrod-lowe/connect-email-bridge/internal/cases"
	"github.com/jarrod-lowe/connect-email-bridge/internal/config"
	"github.com/jarrod-lowe/connect-email-bridge/internal/email"
	"github.com/jarrod-lowe/connect-email-bridge/internal/mailer"
	"github.com/jarrod-lowe/connect-email-bridge/internal/profile"
	"github.com/jarrod-lowe/connect-email-bridge/internal/storage"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
)

var logger = logging.New()

// Response is the fixed result returned to the Lambda runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// CaseReader fetches the fields a reply needs.
type CaseReader interface {
	GetDetails(ctx context.Context, caseID string) (*cases.Details, error)
}

// ProfileFinder looks up a customer profile by id.
type ProfileFinder interface {
	SearchByID(ctx context.Context, profileID string) (*profile.Profile, error)
}

// Sender delivers a reply email.
type Sender interface {
	Send(ctx context.Context, out email.OutboundEmail, files []mailer.FileRef) (string, error)
}

// handler implements the email-reply logic.
type handler struct {
	cases    CaseReader
	profiles ProfileFinder
	sender   Sender
}

// newHandler creates a new handler.
func newHandler(caseReader CaseReader, profiles ProfileFinder, sender Sender) *handler {
	return &handler{
		cases:    caseReader,
		profiles: profiles,
		sender:   sender,
	}
}

// handle mails comment events to the customer; other related items are ignored.
func (h *handler) handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	ctx, span := tracing.Tracer("connect-email-reply").Start(ctx, "EmailReplyHandler")
	defer span.End()

	ok := Response{StatusCode: http.StatusOK, Body: "Hello from Lambda!"}

	ev, err := cases.ParseEvent(event.Detail)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to parse case event",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return Response{}, err
	}

	if !ev.IsComment() {
		logger.InfoContext(ctx, "Ignoring related item",
			slog.String("related_item_type", ev.RelatedItem.RelatedItemType),
			slog.String("case_id", ev.RelatedItem.CaseID),
		)
		return ok, nil
	}

	body, caseID, err := ev.CommentBody()
	if err != nil {
		tracing.RecordError(span, err)
		return Response{}, err
	}
	span.SetAttributes(attribute.String("case_id", caseID))

	if err := h.reply(ctx, caseID, body); err != nil {
		logger.ErrorContext(ctx, "Failed to send reply",
			slog.String("case_id", caseID),
			slog.String("user_arn", ev.UserARN()),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return Response{}, err
	}
	return ok, nil
}

// reply sends body to the customer of the case, titled with the case title.
func (h *handler) reply(ctx context.Context, caseID, body string) error {
	details, err := h.cases.GetDetails(ctx, caseID)
	if err != nil {
		return err
	}

	customer, err := h.profiles.SearchByID(ctx, details.CustomerID)
	if err != nil {
		return fmt.Errorf("find profile %s: %w", details.CustomerID, err)
	}
	if customer.EmailAddress == "" {
		return fmt.Errorf("%w: profile %s has no email address", profile.ErrInvalidResponse, customer.ID)
	}

	messageID, err := h.sender.Send(ctx, email.OutboundEmail{
		To:      customer.EmailAddress,
		Subject: details.Title,
		Text:    body,
	}, nil)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Sent reply",
		slog.String("case_id", caseID),
		slog.String("profile_id", customer.ID),
		slog.String("message_id", messageID),
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

	cfg, err := config.LoadReply(os.Getenv)
	if err != nil {
		logger.Error("FATAL: Failed to load configuration", slog.String("error", err.Error()))
		panic(err)
	}

	caseClient := cases.NewClient(connectcases.NewFromConfig(result.Config), cfg.CasesDomain, "")
	directory := profile.NewDirectory(customerprofiles.NewFromConfig(result.Config), cfg.ProfileDomain)
	store := storage.NewS3Store(s3.NewFromConfig(result.Config))
	sender := mailer.NewSESSender(ses.NewFromConfig(result.Config), store, cfg.SourceEmail, cfg.AttachmentsBucket, cfg.AttachmentLocation)

	h := newHandler(caseClient, directory, sender)
	result.Start(h.handle)
}
