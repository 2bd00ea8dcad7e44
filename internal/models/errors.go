package models

import "fmt"

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Parsing and shape
	ErrGameStateInvalid ErrorType = "game_state_invalid"
	ErrShapeMismatch    ErrorType = "shape_mismatch"

	// Scoring
	ErrScorerFailed       ErrorType = "scorer_failed"
	ErrScorerOutputLength ErrorType = "scorer_output_length"
	ErrScorerOutputNaN    ErrorType = "scorer_output_nan"

	// Sandbox verification
	ErrEnvironmentBuildFailed ErrorType = "environment_build_failed"
	ErrEnvironmentStartFailed ErrorType = "environment_start_failed"
	ErrVerifierFailed         ErrorType = "verifier_failed"
	ErrVerifierTimeout        ErrorType = "verifier_timeout"
	ErrVerifierRewardMissing  ErrorType = "verifier_reward_missing"
	ErrVerifierRewardInvalid  ErrorType = "verifier_reward_invalid"

	// Catch-all
	ErrInternalError ErrorType = "internal_error"
)

// ShapeError reports parsed structures that disagree on agents, batches or node counts.
type ShapeError struct {
	Agent   AgentID
	Batch   BatchID
	Message string
}

func (e *ShapeError) Error() string {
	switch {
	case e.Batch != "":
		return fmt.Sprintf("%s: agent %q batch %q: %s", ErrShapeMismatch, e.Agent, e.Batch, e.Message)
	case e.Agent != "":
		return fmt.Sprintf("%s: agent %q: %s", ErrShapeMismatch, e.Agent, e.Message)
	default:
		return fmt.Sprintf("%s: %s", ErrShapeMismatch, e.Message)
	}
}

// ScorerError is a failure of an external scorer while scoring one node.
type ScorerError struct {
	Type   ErrorType
	Scorer string
	Err    error
}

func (e *ScorerError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Type, e.Scorer, e.Err)
}

func (e *ScorerError) Unwrap() error {
	return e.Err
}

// VerifierError is a failure inside a sandboxed verifier run.
type VerifierError struct {
	Type    ErrorType
	Message string
}

func (e *VerifierError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
