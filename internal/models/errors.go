package models

import "errors"

// DomainError carries an error code alongside the message so callers can map
// failures to a response without string matching
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Domain error taxonomy. All are terminal for the current operation; nothing
// is retried automatically.
var (
	ErrInvalidTenant          = NewDomainError("INVALID_TENANT", "tenant id is missing or malformed")
	ErrTenantNotFound         = NewDomainError("TENANT_NOT_FOUND", "tenant does not exist")
	ErrStorageQuotaExceeded   = NewDomainError("STORAGE_QUOTA_EXCEEDED", "storage provider refused to create a new collection")
	ErrSequenceUnavailable    = NewDomainError("SEQUENCE_UNAVAILABLE", "sequence counter increment failed")
	ErrMissingIdentifiers     = NewDomainError("MISSING_IDENTIFIERS", "item update is missing its prior identifiers")
	ErrOrderNotFound          = NewDomainError("ORDER_NOT_FOUND", "order does not exist")
	ErrTransactionUnavailable = NewDomainError("TRANSACTION_UNAVAILABLE", "transactional session could not be opened")
	ErrValidation             = NewDomainError("VALIDATION_ERROR", "payload failed validation")
)

// AsDomainError unwraps err to a DomainError if one is in the chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
