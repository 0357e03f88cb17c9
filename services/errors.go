package services

import "github.com/pkg/errors"

// Sentinel errors of the settlement engine. Each family aborts the call with
// no state change; verification failures are deliberately NOT here because
// they are recorded outcomes, not aborts.
var (
	// Initialization
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")

	// Authorization
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrNotRelayer         = errors.New("caller is not a relayer")
	ErrNotMessenger       = errors.New("caller is not the registered messenger adapter")
	ErrNotAuthorized      = errors.New("caller is not authorized")
	ErrNotAssignedRelayer = errors.New("caller is not the assigned relayer")

	// Intent state conflicts
	ErrIntentAlreadyExists = errors.New("intent already exists")
	ErrIntentNotFound      = errors.New("intent not found")
	ErrInvalidStatus       = errors.New("invalid intent status for this transition")
	ErrIntentNotExpired    = errors.New("intent deadline has not passed")
	ErrAlreadyFilled       = errors.New("fill record already exists for this hash")

	// Validation
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidDeadline = errors.New("deadline must be in the future")
	ErrInvalidFee      = errors.New("fee exceeds the allowed maximum")

	// Cross-chain
	ErrUntrustedSource = errors.New("source contract is not trusted")
	ErrChainNotFound   = errors.New("chain id has no registered name")
)
