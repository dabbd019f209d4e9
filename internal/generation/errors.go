package generation

import "errors"

// Sentinel errors for card generation. The gemini platform package wraps
// every failure in exactly one of these so callers can branch with errors.Is
// instead of inspecting provider-specific codes.
var (
	// ErrInvalidConfig reports a generator that cannot be constructed, such
	// as a missing API key or model name.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrTransientFailure marks errors worth retrying: rate limits, 5xx
	// responses, network resets, and context timeouts.
	ErrTransientFailure = errors.New("transient card generation failure")

	// ErrContentBlocked means the model refused the topic on safety grounds.
	// Retrying the same topic will not help.
	ErrContentBlocked = errors.New("topic blocked by model safety filters")

	// ErrInvalidResponse means the model answered but the payload was not
	// usable: empty candidates, malformed JSON, or cards failing validation.
	ErrInvalidResponse = errors.New("unusable model response")

	// ErrGenerationFailed covers permanent failures that fit none of the
	// categories above, such as a 4xx from the provider.
	ErrGenerationFailed = errors.New("card generation failed")
)
