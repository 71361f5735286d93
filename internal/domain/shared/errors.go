package shared

// DomainError is a business failure identified by a stable code. The HTTP
// layer maps codes to statuses, so codes never change meaning.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

// Is matches any DomainError with the same code, so a specific message
// still satisfies errors.Is against the generic sentinel below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrLocked        = NewDomainError("LOCKED", "Resource is being processed by another worker")
)
