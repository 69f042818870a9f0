package accounts

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ProblemResponse is the JSON error body, modeled after RFC 7807.
type ProblemResponse struct {
	Status    int            `json:"status"`
	Title     string         `json:"title"`
	Detail    string         `json:"detail,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Errors    map[string]any `json:"errors,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// respondError maps domain errors onto HTTP responses. Structured errors
// carry their own status and text code; ozzo validation errors become a 400
// with per-field messages; anything else is a 500 with no internals leaked.
func respondError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	if verr, ok := err.(validation.Errors); ok {
		fields := make(map[string]any, len(verr))
		for name, ferr := range verr {
			fields[name] = ferr.Error()
		}
		return c.Status(fiber.StatusBadRequest).JSON(ProblemResponse{
			Status:    fiber.StatusBadRequest,
			Title:     "Validation Error",
			Detail:    "validation failed",
			ErrorCode: textCodeValidation,
			Errors:    fields,
			Timestamp: time.Now().UTC(),
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := httpStatusFor(richErr)
		return c.Status(status).JSON(ProblemResponse{
			Status:    status,
			Title:     titleFor(richErr),
			Detail:    richErr.Message,
			ErrorCode: richErr.TextCode,
			Timestamp: time.Now().UTC(),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ProblemResponse{
		Status:    fiber.StatusInternalServerError,
		Title:     "Internal Server Error",
		Detail:    "an unexpected error occurred",
		ErrorCode: "INTERNAL_ERROR",
		Timestamp: time.Now().UTC(),
	})
}

func httpStatusFor(err *goerrors.Error) int {
	if err.Code > 0 {
		return int(err.Code)
	}

	switch err.Category {
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func titleFor(err *goerrors.Error) string {
	switch err.TextCode {
	case textCodeUserNotFound:
		return "User Not Found"
	case textCodeUserExists:
		return "User Already Exists"
	case textCodeInvalidTransition:
		return "Invalid Status Transition"
	case textCodeUnknownStatus:
		return "Unknown Status"
	case textCodeInvalidPassword:
		return "Invalid Password"
	default:
		return "Request Failed"
	}
}
