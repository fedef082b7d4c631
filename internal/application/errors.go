package application

import "errors"

// Errors surfaced by the services. Backend errors never cross this boundary;
// the services log the cause and return one of these.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrRegistration       = errors.New("registration failed")
	ErrInvalidFile        = errors.New("invalid file")
	ErrUpload             = errors.New("failed to upload file")
	ErrDeletion           = errors.New("failed to delete file")
	ErrUnavailable        = errors.New("service unavailable")

	// ErrEmailInUse is wrapped by the RegistrationError for a taken email.
	ErrEmailInUse = errors.New("email already in use")
)

// RegistrationError carries a user-facing reason; errors.Is matches ErrRegistration
// and, when set, Err.
type RegistrationError struct {
	Reason string
	Err    error
}

func (e *RegistrationError) Error() string {
	if e.Reason == "" {
		return ErrRegistration.Error()
	}
	return ErrRegistration.Error() + ": " + e.Reason
}

func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

func (e *RegistrationError) Unwrap() error { return e.Err }

// InvalidFileError is returned by the upload helpers when a file fails validation.
type InvalidFileError struct {
	Reason string
}

func (e *InvalidFileError) Error() string { return e.Reason }

func (e *InvalidFileError) Is(target error) bool { return target == ErrInvalidFile }
