package services

import "fmt"

// FieldError names a single failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every failing field, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError means a referenced resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ForbiddenError means the caller is authenticated but not allowed to
// touch this resource.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// ConflictError covers order-number collisions, duplicate payment
// submissions and illegal status transitions.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// OutOfStockError means a conditional stock decrement found fewer units
// than the order requires.
type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q", e.ProductName)
}

// GatewayError means the payment provider was unreachable or rejected
// the request. The client may retry by restarting checkout.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return "payment gateway error: " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// SignatureMismatchError means a payment callback failed cryptographic
// verification. Fatal, never retried, logged as a potential fraud signal.
type SignatureMismatchError struct {
	OrderRef string
}

func (e *SignatureMismatchError) Error() string {
	return "payment signature verification failed for " + e.OrderRef
}
