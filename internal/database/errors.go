package database

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Backend error codes. Callers branch on the code, not the message,
// mirroring what the data backend reports for row-level operations.
const (
	CodeNotFound   = "not_found"
	CodeDuplicate  = "duplicate"
	CodePermission = "permission_denied"
	CodeConflict   = "conflict"
	CodeInternal   = "internal"
)

// BackendError is the error shape returned by the storage layer.
type BackendError struct {
	Code    string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewError builds a BackendError with the given code.
func NewError(code, message string, err error) *BackendError {
	return &BackendError{Code: code, Message: message, Err: err}
}

// ErrCode extracts the backend error code from an error chain, or
// CodeInternal when the error carries none.
func ErrCode(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a not-found backend error.
func IsNotFound(err error) bool {
	return ErrCode(err) == CodeNotFound
}

// IsDuplicate reports whether err is a duplicate-key backend error.
// MySQL duplicate-key errors (1062) are translated as well.
func IsDuplicate(err error) bool {
	if ErrCode(err) == CodeDuplicate {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
