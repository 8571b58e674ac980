// Package profile resolves customers in an Amazon Connect Customer Profiles domain.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/customerprofiles"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Search keys understood by the profile domain.
const (
	KeyEmail     = "_email"
	KeyProfileID = "_profileId"
)

// Error types for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidResponse = errors.New("invalid profile response")
)

// Profile is the subset of a customer profile the bridge consumes.
type Profile struct {
	ID           string
	EmailAddress string
}

// ProfilesAPI abstracts the Customer Profiles operations for dependency inversion.
type ProfilesAPI interface {
	SearchProfiles(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error)
	CreateProfile(ctx context.Context, params *customerprofiles.CreateProfileInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.CreateProfileOutput, error)
}

// Directory looks up and creates profiles in a single domain.
type Directory struct {
	client ProfilesAPI
	domain string
}

// NewDirectory creates a new Directory.
func NewDirectory(client ProfilesAPI, domain string) *Directory {
	return &Directory{
		client: client,
		domain: domain,
	}
}

// SearchByEmail returns the first profile whose email address matches.
func (d *Directory) SearchByEmail(ctx context.Context, email string) (*Profile, error) {
	return d.search(ctx, KeyEmail, email)
}

// SearchByID returns the profile with the given identifier.
func (d *Directory) SearchByID(ctx context.Context, profileID string) (*Profile, error) {
	return d.search(ctx, KeyProfileID, profileID)
}

func (d *Directory) search(ctx context.Context, keyName, value string) (*Profile, error) {
	ctx, span := tracing.Tracer("connect-email-profile").Start(ctx, "profile.Search",
		trace.WithAttributes(attribute.String("key_name", keyName)))
	defer span.End()

	out, err := d.client.SearchProfiles(ctx, &customerprofiles.SearchProfilesInput{
		DomainName: &d.domain,
		KeyName:    &keyName,
		Values:     []string{value},
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("search profiles by %s: %w", keyName, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: %s=%s", ErrProfileNotFound, keyName, value)
	}

	item := out.Items[0]
	p := &Profile{}
	if item.ProfileId != nil {
		p.ID = *item.ProfileId
	}
	if item.EmailAddress != nil {
		p.EmailAddress = *item.EmailAddress
	}
	span.SetAttributes(attribute.String("profile_id", p.ID))
	return p, nil
}

// Create creates a profile holding only an email address and returns its identifier.
func (d *Directory) Create(ctx context.Context, email string) (string, error) {
	ctx, span := tracing.Tracer("connect-email-profile").Start(ctx, "profile.Create")
	defer span.End()

	out, err := d.client.CreateProfile(ctx, &customerprofiles.CreateProfileInput{
		DomainName:   &d.domain,
		EmailAddress: &email,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("create profile: %w", err)
	}
	if out.ProfileId == nil || *out.ProfileId == "" {
		err := fmt.Errorf("%w: create returned no profile id", ErrInvalidResponse)
		tracing.RecordError(span, err)
		return "", err
	}
	return *out.ProfileId, nil
}

// Resolve returns the identifier of the profile for email, creating the profile
// when none exists. created reports whether a new profile was made.
func (d *Directory) Resolve(ctx context.Context, email string) (profileID string, created bool, err error) {
	p, err := d.SearchByEmail(ctx, email)
	if err == nil {
		return p.ID, false, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return "", false, err
	}

	profileID, err = d.Create(ctx, email)
	if err != nil {
		return "", false, err
	}
	return profileID, true, nil
}
