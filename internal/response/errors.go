package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrUnresolvedIdentity   ErrCode = "UNRESOLVED_IDENTITY"
	ErrSessionActive        ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrNoSession            ErrCode = "NO_LIVE_SESSION"
	ErrAttemptExists        ErrCode = "ATTEMPT_EXISTS"
	ErrInvalidTransition    ErrCode = "INVALID_TRANSITION"
	ErrPresenceNotConfirmed ErrCode = "PRESENCE_NOT_CONFIRMED"
	ErrFullscreenRequired   ErrCode = "FULLSCREEN_REQUIRED"
	ErrNoQuestions          ErrCode = "NO_QUESTIONS"
	ErrResultNotReady       ErrCode = "RESULT_NOT_READY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrLoginActive:
		return "You are already logged in on another device."
	case ErrLoginInvalidated:
		return "Your login has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrUnresolvedIdentity:
		return "Your employee, exam or job assignment could not be resolved."
	case ErrSessionActive:
		return "Another proctored session is already running."
	case ErrNoSession:
		return "There is no live session for this exam."
	case ErrAttemptExists:
		return "This exam was already attempted for this job."
	case ErrInvalidTransition:
		return "This action is not allowed in the current session state."
	case ErrPresenceNotConfirmed:
		return "Your face must be visible to the camera before starting."
	case ErrFullscreenRequired:
		return "The exam must be started in fullscreen."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrResultNotReady:
		return "The result for this attempt is not available yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
