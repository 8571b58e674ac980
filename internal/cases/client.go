// Package cases creates and reads Amazon Connect Cases.
package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/connectcases"
	"github.com/aws/aws-sdk-go-v2/service/connectcases/types"
	"github.com/google/uuid"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Case field identifiers.
const (
	FieldCustomerID = "customer_id"
	FieldTitle      = "title"
)

// ErrInvalidResponse is returned when the Cases API omits a required value.
var ErrInvalidResponse = errors.New("invalid cases response")

// CasesAPI abstracts the Connect Cases operations for dependency inversion.
type CasesAPI interface {
	CreateCase(ctx context.Context, params *connectcases.CreateCaseInput, optFns ...func(*connectcases.Options)) (*connectcases.CreateCaseOutput, error)
	CreateRelatedItem(ctx context.Context, params *connectcases.CreateRelatedItemInput, optFns ...func(*connectcases.Options)) (*connectcases.CreateRelatedItemOutput, error)
	GetCase(ctx context.Context, params *connectcases.GetCaseInput, optFns ...func(*connectcases.Options)) (*connectcases.GetCaseOutput, error)
}

// Case identifies a created case.
type Case struct {
	ID  string
	ARN string
}

// Details are the case fields the reply flow needs.
type Details struct {
	// CustomerID is the bare profile identifier.
	CustomerID string
	Title      string
}

// Client operates on cases in one Cases domain.
type Client struct {
	api        CasesAPI
	domainID   string
	templateID string
	newToken   func() string
}

// NewClient creates a new Client. templateID may be empty for clients that only read.
func NewClient(api CasesAPI, domainID, templateID string) *Client {
	return &Client{
		api:        api,
		domainID:   domainID,
		templateID: templateID,
		newToken:   uuid.NewString,
	}
}

// CreateCase opens a case for the customer referenced by customerARN.
func (c *Client) CreateCase(ctx context.Context, customerARN, title string) (*Case, error) {
	ctx, span := tracing.Tracer("connect-email-cases").Start(ctx, "cases.CreateCase",
		trace.WithAttributes(attribute.String("template_id", c.templateID)))
	defer span.End()

	token := c.newToken()
	out, err := c.api.CreateCase(ctx, &connectcases.CreateCaseInput{
		DomainId:    &c.domainID,
		TemplateId:  &c.templateID,
		ClientToken: &token,
		Fields: []types.FieldValue{
			stringField(FieldCustomerID, customerARN),
			stringField(FieldTitle, title),
		},
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("create case: %w", err)
	}
	if out.CaseArn == nil || out.CaseId == nil {
		err := fmt.Errorf("%w: create case returned no identifier", ErrInvalidResponse)
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("case_id", *out.CaseId))
	return &Case{ID: *out.CaseId, ARN: *out.CaseArn}, nil
}

// PostComment adds a plain-text comment to a case and returns the related item id.
func (c *Client) PostComment(ctx context.Context, caseID, body string) (string, error) {
	ctx, span := tracing.Tracer("connect-email-cases").Start(ctx, "cases.PostComment",
		trace.WithAttributes(attribute.String("case_id", caseID)))
	defer span.End()

	out, err := c.api.CreateRelatedItem(ctx, &connectcases.CreateRelatedItemInput{
		CaseId:   &caseID,
		DomainId: &c.domainID,
		Type:     types.RelatedItemTypeComment,
		Content: &types.RelatedItemInputContentMemberComment{
			Value: types.CommentContent{
				Body:        &body,
				ContentType: types.CommentBodyTextTypePlaintext,
			},
		},
	})
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("post comment on case %s: %w", caseID, err)
	}
	if out.RelatedItemId == nil {
		return "", nil
	}
	return *out.RelatedItemId, nil
}

// GetDetails reads the customer_id and title fields of a case.
func (c *Client) GetDetails(ctx context.Context, caseID string) (*Details, error) {
	ctx, span := tracing.Tracer("connect-email-cases").Start(ctx, "cases.GetDetails",
		trace.WithAttributes(attribute.String("case_id", caseID)))
	defer span.End()

	out, err := c.api.GetCase(ctx, &connectcases.GetCaseInput{
		CaseId:   &caseID,
		DomainId: &c.domainID,
		Fields: []types.FieldIdentifier{
			{Id: ptr(FieldCustomerID)},
			{Id: ptr(FieldTitle)},
		},
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("get case %s: %w", caseID, err)
	}

	details := ExtractDetails(out.Fields)
	if details.CustomerID == "" {
		err := fmt.Errorf("%w: case %s has no %s", ErrInvalidResponse, caseID, FieldCustomerID)
		tracing.RecordError(span, err)
		return nil, err
	}
	return &details, nil
}

func stringField(id, value string) types.FieldValue {
	return types.FieldValue{
		Id:    &id,
		Value: &types.FieldValueUnionMemberStringValue{Value: value},
	}
}

func ptr(s string) *string {
	return &s
}
