package authcore

import "errors"

var (
	// ErrUnauthorized is returned by Authorize when the access token is
	// missing, malformed, expired, or carries the wrong token type.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPermissionDenied is returned by Authorize when the token is valid
	// but its role snapshot does not contain the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSubjectRequired is returned when an operation is called with an
	// empty subject identifier.
	ErrSubjectRequired = errors.New("subject id required")
	// ErrRefreshInvalid is returned when a refresh token fails to decode or
	// is not of the refresh type.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrFamilyNotFound is returned when the session family referenced by a
	// refresh token no longer exists: it expired, was revoked, or was
	// destroyed after theft detection.
	ErrFamilyNotFound = errors.New("session family not found")
	// ErrRefreshReuse is returned when a refresh token that was already
	// rotated is presented again. The whole family is destroyed before this
	// error is reported.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrStoreUnavailable is returned when the credential store cannot be
	// reached or the call timed out. The operation is never retried
	// internally; callers must restart the login-or-refresh flow.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// engine that was not assembled through Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// reauthenticateMessage deliberately does not distinguish a vanished family
// from detected reuse, so a caller replaying an old token learns nothing
// about whether the rotation already happened.
const reauthenticateMessage = "Refresh token not found or was stolen. Please sign in again and log out all other devices"

// UserMessage maps an engine error to the string that may be shown to an end
// user. ErrFamilyNotFound and ErrRefreshReuse share one message on purpose.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRefreshReuse), errors.Is(err, ErrFamilyNotFound):
		return reauthenticateMessage
	case errors.Is(err, ErrRefreshInvalid):
		return "invalid refresh token"
	case errors.Is(err, ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, ErrStoreUnavailable):
		return "service temporarily unavailable"
	default:
		return "unauthorized"
	}
}
