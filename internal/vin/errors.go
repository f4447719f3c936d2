package vin

import (
	"errors"
	"fmt"
)

// BridgeError reports a failed call to the virtual-input service, or a
// service that could not be reached at all.
type BridgeError struct {
	// Op is the protocol operation that failed.
	Op  string
	Err error
}

// Protocol operation names used in BridgeError.Op.
const (
	OpCreateSession          = "CreateSession"
	OpSubscribeInputRequests = "SubscribeInputRequests"
	OpSupplyInput            = "SupplyInput"
	OpDestroySession         = "DestroySession"

	// OpOpenInput is opening the session path as the program's stdin.
	OpOpenInput = "OpenVirtualInput"
)

func (e *BridgeError) Error() string {
	return fmt.Sprintf("virtual input: %s: %v", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// IsBridgeError reports whether err is or wraps a BridgeError.
func IsBridgeError(err error) bool {
	var be *BridgeError
	return errors.As(err, &be)
}
