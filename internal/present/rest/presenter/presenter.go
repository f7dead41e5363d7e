package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/passgate"
	"github.com/totegamma/passgate/internal/domain"
)

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	slog.Debug("bad request", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, passgate.ErrorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.Debug("bad request", slog.String("error", msg), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, passgate.ErrorResponse{Error: msg})
}

// Invalid reports field-level validation failures.
func Invalid(c echo.Context, verr *domain.ValidationError) error {
	fields := make([]passgate.FieldError, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, passgate.FieldError{Field: f.Field, Message: f.Message})
	}
	return c.JSON(http.StatusBadRequest, passgate.ValidationErrors{Errors: fields})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, passgate.ErrorResponse{Error: msg})
}

func Forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, passgate.ErrorResponse{Error: domain.ErrForbidden.Error()})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, passgate.ErrorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(
		c.Request().Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
		slog.String("module", "presenter"),
	)
	return c.JSON(http.StatusInternalServerError, passgate.ErrorResponse{Error: "internal server error"})
}

// Error maps usecase errors onto status codes.
func Error(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return Invalid(c, verr)
	case errors.Is(err, domain.ErrForbidden):
		return Forbidden(c)
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	default:
		return InternalError(c, err)
	}
}
