package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/customerprofiles"
	"github.com/aws/aws-sdk-go-v2/service/customerprofiles/types"
)

// mockProfilesAPI implements ProfilesAPI for testing.
type mockProfilesAPI struct {
	searchFunc func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error)
	createFunc func(ctx context.Context, params *customerprofiles.CreateProfileInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.CreateProfileOutput, error)
	calls      []string
}

func (m *mockProfilesAPI) SearchProfiles(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
	m.calls = append(m.calls, "search")
	if m.searchFunc != nil {
		return m.searchFunc(ctx, params, optFns...)
	}
	return &customerprofiles.SearchProfilesOutput{}, nil
}

func (m *mockProfilesAPI) CreateProfile(ctx context.Context, params *customerprofiles.CreateProfileInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.CreateProfileOutput, error) {
	m.calls = append(m.calls, "create")
	if m.createFunc != nil {
		return m.createFunc(ctx, params, optFns...)
	}
	return &customerprofiles.CreateProfileOutput{ProfileId: aws.String("new-profile")}, nil
}

func foundProfile(id, email string) func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
	return func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
		return &customerprofiles.SearchProfilesOutput{
			Items: []types.Profile{
				{ProfileId: aws.String(id), EmailAddress: aws.String(email)},
			},
		}, nil
	}
}

func TestDirectory_SearchByEmail(t *testing.T) {
	var captured *customerprofiles.SearchProfilesInput
	mock := &mockProfilesAPI{
		searchFunc: func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
			captured = params
			return foundProfile("profile-123", "jane@example.com")(ctx, params)
		},
	}

	p, err := NewDirectory(mock, "customers").SearchByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "profile-123" || p.EmailAddress != "jane@example.com" {
		t.Errorf("profile = %+v", p)
	}
	if *captured.DomainName != "customers" {
		t.Errorf("DomainName = %q, want %q", *captured.DomainName, "customers")
	}
	if *captured.KeyName != KeyEmail {
		t.Errorf("KeyName = %q, want %q", *captured.KeyName, KeyEmail)
	}
	if len(captured.Values) != 1 || captured.Values[0] != "jane@example.com" {
		t.Errorf("Values = %v", captured.Values)
	}
}

func TestDirectory_SearchByID(t *testing.T) {
	var keyName string
	mock := &mockProfilesAPI{
		searchFunc: func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
			keyName = *params.KeyName
			return foundProfile("profile-123", "jane@example.com")(ctx, params)
		},
	}

	p, err := NewDirectory(mock, "customers").SearchByID(context.Background(), "profile-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyName != KeyProfileID {
		t.Errorf("KeyName = %q, want %q", keyName, KeyProfileID)
	}
	if p.EmailAddress != "jane@example.com" {
		t.Errorf("EmailAddress = %q", p.EmailAddress)
	}
}

func TestDirectory_SearchNotFound(t *testing.T) {
	_, err := NewDirectory(&mockProfilesAPI{}, "customers").SearchByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestDirectory_SearchError(t *testing.T) {
	mock := &mockProfilesAPI{
		searchFunc: func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	_, err := NewDirectory(mock, "customers").SearchByEmail(context.Background(), "jane@example.com")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrProfileNotFound) {
		t.Error("service errors should not map to ErrProfileNotFound")
	}
}

func TestDirectory_Resolve_Existing(t *testing.T) {
	mock := &mockProfilesAPI{searchFunc: foundProfile("profile-123", "jane@example.com")}

	id, created, err := NewDirectory(mock, "customers").Resolve(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "profile-123" || created {
		t.Errorf("Resolve = (%q, %v), want (profile-123, false)", id, created)
	}
	if len(mock.calls) != 1 || mock.calls[0] != "search" {
		t.Errorf("calls = %v, want [search]", mock.calls)
	}
}

func TestDirectory_Resolve_CreatesMissing(t *testing.T) {
	var createdEmail string
	mock := &mockProfilesAPI{
		createFunc: func(ctx context.Context, params *customerprofiles.CreateProfileInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.CreateProfileOutput, error) {
			createdEmail = *params.EmailAddress
			return &customerprofiles.CreateProfileOutput{ProfileId: aws.String("profile-new")}, nil
		},
	}

	id, created, err := NewDirectory(mock, "customers").Resolve(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "profile-new" || !created {
		t.Errorf("Resolve = (%q, %v), want (profile-new, true)", id, created)
	}
	if createdEmail != "new@example.com" {
		t.Errorf("created email = %q", createdEmail)
	}
	if len(mock.calls) != 2 || mock.calls[0] != "search" || mock.calls[1] != "create" {
		t.Errorf("calls = %v, want [search create]", mock.calls)
	}
}

func TestDirectory_Resolve_SearchErrorDoesNotCreate(t *testing.T) {
	mock := &mockProfilesAPI{
		searchFunc: func(ctx context.Context, params *customerprofiles.SearchProfilesInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.SearchProfilesOutput, error) {
			return nil, errors.New("access denied")
		},
	}

	if _, _, err := NewDirectory(mock, "customers").Resolve(context.Background(), "jane@example.com"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(mock.calls) != 1 {
		t.Errorf("calls = %v, want only search", mock.calls)
	}
}

func TestDirectory_Create_MissingID(t *testing.T) {
	mock := &mockProfilesAPI{
		createFunc: func(ctx context.Context, params *customerprofiles.CreateProfileInput, optFns ...func(*customerprofiles.Options)) (*customerprofiles.CreateProfileOutput, error) {
			return &customerprofiles.CreateProfileOutput{}, nil
		},
	}

	_, err := NewDirectory(mock, "customers").Create(context.Background(), "jane@example.com")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}
