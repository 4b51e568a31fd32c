package mollie

import (
	"errors"
	"fmt"
)

// Operation names used in errors, logs and metric labels.
const (
	OpCreateCustomer     = "create_customer"
	OpCreatePayment      = "create_payment"
	OpListMandates       = "list_mandates"
	OpCreateSubscription = "create_subscription"
	OpGetPayment         = "get_payment"
)

// ValidationError reports a required request field that was missing. It is
// raised before any network I/O.
type ValidationError struct {
	Op    string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("mollie: %s: invalid request", e.Op)
	}
	return fmt.Sprintf("mollie: %s: %s is required", e.Op, e.Field)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// OperationFailedError wraps any transport failure or non-2xx response. The
// provider's error body is not inspected.
type OperationFailedError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *OperationFailedError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("mollie: %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("mollie: %s failed", e.Op)
}

func (e *OperationFailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MalformedResponseError reports a 2xx response whose body could not be
// decoded or lacks an expected path such as "_embedded.mandates".
type MalformedResponseError struct {
	Op   string
	Path string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mollie: %s: malformed response at %q", e.Op, e.Path)
}

func (e *MalformedResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsOperationFailed reports whether err is an OperationFailedError.
func IsOperationFailed(err error) bool {
	var target *OperationFailedError
	return errors.As(err, &target)
}

// IsMalformed reports whether err is a MalformedResponseError.
func IsMalformed(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}
