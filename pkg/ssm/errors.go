package ssm

import (
	"context"
	"errors"
	"net"

	"github.com/aws/smithy-go"
)

// IsTransient classifies errors worth retrying: API throttling and
// individual call timeouts. A canceled parent context is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return true
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
