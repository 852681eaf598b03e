package app

import (
	"errors"

	"ai-grocery-checklist/internal/generator"
	"ai-grocery-checklist/internal/shopping"
)

var (
	// ErrBlankInput is returned by Generate when there is nothing but whitespace to send.
	ErrBlankInput = errors.New("input is blank")
	// ErrGenerationInProgress is returned when a session is already waiting on the model.
	ErrGenerationInProgress = errors.New("a generation is already in progress")
)

// Message turns any error coming out of a Session into the single line shown
// to the user. It returns "" for nil.
func Message(err error) string {
	var genErr *generator.GenerationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBlankInput):
		return "Please enter some text to generate a list."
	case errors.Is(err, ErrGenerationInProgress):
		return "A list is already being generated. Please wait for it to finish."
	case errors.As(err, &genErr):
		return genErr.Error()
	case errors.Is(err, shopping.ErrCorrupted):
		return "Could not load the saved list. It might be corrupted."
	case errors.Is(err, shopping.ErrNotFound):
		return "There is no saved list yet."
	default:
		return "An unexpected error occurred."
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, shopping.ErrNotFound)
}
