package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/floroz/bidout/pkg/apperr"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	errBadPayload = apperr.New(apperr.BadRequest, "Invalid request payload")
	errEmptyBody  = apperr.New(apperr.BadRequest, "Request body is required")
)

// envelope is the shape of every response body.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, envelope{Status: statusSuccess, Message: message, Data: data})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Gone:
		return http.StatusGone
	case apperr.InvalidEntry:
		return http.StatusUnprocessableEntity
	case apperr.BadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err and aborts the chain. Unclassified errors are
// logged and hidden behind a generic message.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.Internal {
		logger.Error("Request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			envelope{Status: statusFailure, Message: "Server Error"})
		return
	}

	body := envelope{Status: statusFailure, Message: e.Message}
	if len(e.Fields) > 0 {
		body.Data = e.Fields
	}
	c.AbortWithStatusJSON(statusFor(e.Kind), body)
}

// bindError converts a gin binding failure into an apperr.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
		return apperr.Invalid(fields)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.Field(typeErr.Field, "Invalid type, expected "+typeErr.Type.String())
	}

	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return errBadPayload
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must not be more than %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must not be less than %s", fe.Param())
	default:
		return "Invalid value"
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
