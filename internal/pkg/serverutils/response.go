package serverutils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{Message: message, Data: data}
}

// ApiError carries an HTTP status through the service layer so controllers
// can just return it.
type ApiError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(statusCode int, message string) *ApiError {
	return &ApiError{StatusCode: statusCode, Message: message}
}

var (
	ErrNotFound     = NewApiError(fiber.StatusNotFound, "resource not found")
	ErrForbidden    = NewApiError(fiber.StatusForbidden, "you do not have access to this resource")
	ErrUnauthorized = NewApiError(fiber.StatusUnauthorized, "unauthorized")
)

// ErrorHandlerMiddleware converts errors bubbling out of controllers into a
// consistent JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var apiErr *ApiError
		if errors.As(err, &apiErr) {
			return ctx.Status(apiErr.StatusCode).JSON(fiber.Map{"message": apiErr.Message})
		}

		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				details = append(details, fe.Field()+" failed on '"+fe.Tag()+"'")
			}
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  details,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
