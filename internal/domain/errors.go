package domain

import "errors"

// Every failure in the engine is a typed, recoverable rejection of one
// operation; a failed operation leaves all persisted state unchanged.
var (
	// Validation
	ErrInvalidQuestionLength    = errors.New("question must be between 10 and 200 characters")
	ErrInvalidDescriptionLength = errors.New("description must be at most 500 characters")
	ErrInvalidCategoryLength    = errors.New("category must be at most 50 characters")
	ErrInvalidResolutionDate    = errors.New("resolution date must be in the future")
	ErrInvalidReasonLength      = errors.New("reason must be between 10 and 200 characters")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidOutcome           = errors.New("outcome not supported for this operation")
	ErrPredictionTooSmall       = errors.New("prediction amount below minimum stake")
	ErrInvalidProof             = errors.New("invalid human verification proof")
	ErrProofExpired             = errors.New("human verification proof has expired")
	ErrInvalidAccuracyScore     = errors.New("accuracy score must be at most 100")

	// Authorization
	ErrUnauthorized              = errors.New("unauthorized")
	ErrUnauthorizedSigner        = errors.New("signer not authorized for multisig")
	ErrInsufficientReputation    = errors.New("insufficient reputation")
	ErrHumanVerificationRequired = errors.New("human verification required for this market")

	// Lifecycle
	ErrMarketNotActive   = errors.New("market is not active")
	ErrAlreadyResolved   = errors.New("market has already been resolved")
	ErrMarketNotResolved = errors.New("market is not resolved")
	ErrMarketExpired     = errors.New("market resolution date has passed")
	ErrMarketNotExpired  = errors.New("market resolution date has not passed")
	ErrAlreadyClaimed    = errors.New("winnings already claimed")
	ErrAlreadyVoted      = errors.New("already voted on this market")
	ErrActionExecuted    = errors.New("emergency action already executed")

	// Arithmetic
	ErrMathOverflow = errors.New("math operation overflow")

	// Economic guards
	ErrSlippageExceeded      = errors.New("slippage tolerance exceeded")
	ErrImbalancedLiquidity   = errors.New("imbalanced liquidity provision")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoWinnings            = errors.New("no winnings to claim")
	ErrPositionNotWinning    = errors.New("position is not winning")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNoVotes               = errors.New("no resolution votes recorded")

	// External data
	ErrInsufficientOracleConfidence = errors.New("oracle confidence below threshold")
	ErrInvalidOracleData            = errors.New("oracle data is invalid")

	// Infrastructure
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
)
