package tracker

import (
	"errors"
)

var (
	ErrExerciseNotFound  = errors.New("exercise not found")
	ErrProtectedExercise = errors.New("default exercises cannot be removed")
	ErrInvalidName       = errors.New("invalid exercise name")
	ErrInvalidField      = errors.New("invalid field")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrStorage           = errors.New("storage failure")
)

// Result is the outcome shape handed to API/CLI callers.
type Result struct {
	Success    bool   `json:"success"`
	ExerciseID string `json:"exerciseId,omitempty"`
	Message    string `json:"message,omitempty"`
}

func ResultFromError(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	return Result{
		Success: false,
		Message: ErrorMessage(err),
	}
}

func AddExerciseResult(id string, err error) Result {
	if err != nil {
		return ResultFromError(err)
	}
	return Result{
		Success:    true,
		ExerciseID: id,
	}
}

// ErrorMessage returns a message that is safe to show to the user.
// Storage details are never exposed.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return "failed to save data, please try again"
	case errors.Is(err, ErrExerciseNotFound):
		return "exercise not found"
	case errors.Is(err, ErrProtectedExercise):
		return "default exercises cannot be removed"
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidAmount):
		return err.Error()
	default:
		return "unexpected error"
	}
}
