package cases

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent is returned when a case event detail cannot be decoded.
var ErrInvalidEvent = errors.New("invalid case event")

// RelatedItemComment is the related item type of comments.
const RelatedItemComment = "comment"

// Event is the detail of a Connect Cases related-item EventBridge event.
type Event struct {
	EventType   string      `json:"eventType"`
	PerformedBy PerformedBy `json:"performedBy"`
	RelatedItem RelatedItem `json:"relatedItem"`
}

// PerformedBy identifies who triggered the event.
type PerformedBy struct {
	User            *User  `json:"user,omitempty"`
	IAMPrincipalARN string `json:"iamPrincipalArn,omitempty"`
}

// User is the Connect user behind an event.
type User struct {
	UserARN string `json:"userArn"`
}

// RelatedItem is the item that was added to the case.
type RelatedItem struct {
	RelatedItemType string   `json:"relatedItemType"`
	RelatedItemID   string   `json:"relatedItemId"`
	CaseID          string   `json:"caseId"`
	Comment         *Comment `json:"comment,omitempty"`
}

// Comment is the content of a comment related item.
type Comment struct {
	Body        string `json:"body"`
	ContentType string `json:"contentType"`
}

// ParseEvent decodes an EventBridge detail payload.
func ParseEvent(detail json.RawMessage) (*Event, error) {
	if len(detail) == 0 {
		return nil, fmt.Errorf("%w: empty detail", ErrInvalidEvent)
	}
	var ev Event
	if err := json.Unmarshal(detail, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &ev, nil
}

// IsComment reports whether the event adds a comment. The item type is matched
// case-insensitively.
func (e *Event) IsComment() bool {
	return strings.EqualFold(e.RelatedItem.RelatedItemType, RelatedItemComment)
}

// UserARN returns the ARN of the Connect user who performed the change, if any.
func (e *Event) UserARN() string {
	if e.PerformedBy.User == nil {
		return ""
	}
	return e.PerformedBy.User.UserARN
}

// CommentBody returns the comment text and case id of a comment event.
func (e *Event) CommentBody() (body, caseID string, err error) {
	if !e.IsComment() {
		return "", "", fmt.Errorf("%w: related item type %q is not a comment", ErrInvalidEvent, e.RelatedItem.RelatedItemType)
	}
	if e.RelatedItem.Comment == nil {
		return "", "", fmt.Errorf("%w: comment event has no comment", ErrInvalidEvent)
	}
	if e.RelatedItem.CaseID == "" {
		return "", "", fmt.Errorf("%w: comment event has no caseId", ErrInvalidEvent)
	}
	return e.RelatedItem.Comment.Body, e.RelatedItem.CaseID, nil
}
