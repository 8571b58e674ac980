package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidARN is returned when an ARN does not have the expected shape.
var ErrInvalidARN = errors.New("invalid ARN")

// ARN returns the profile ARN stored in a case's customer_id field.
func ARN(region, accountID, domain, profileID string) string {
	return fmt.Sprintf("arn:aws:profile:%s:%s:domains/%s/profiles/%s", region, accountID, domain, profileID)
}

// IDFromARN returns the trailing path segment of a profile ARN. Values without
// a "/" are returned unchanged.
func IDFromARN(arn string) string {
	if i := strings.LastIndexByte(arn, '/'); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// AccountIDFromARN returns the account field of an ARN such as a Lambda
// function's invoked ARN.
func AccountIDFromARN(arn string) (string, error) {
	fields := strings.Split(arn, ":")
	if len(fields) < 5 || fields[0] != "arn" || fields[4] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidARN, arn)
	}
	return fields[4], nil
}
