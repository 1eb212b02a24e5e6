package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/aq2208/bookstore-api/internal/adapter/http/apierror"
	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	// prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// report validation failures by json field name
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func writeError(c *gin.Context, status int, code, msg string) {
	apierror.Abort(c, status, code, msg)
}

// handleError maps use case errors onto the error envelope.
func handleError(c *gin.Context, err error) {
	var nf *usecase.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeError(c, http.StatusNotFound, apierror.CodeNotFound, nf.Error())
	case errors.Is(err, usecase.ErrNotFound):
		writeError(c, http.StatusNotFound, apierror.CodeNotFound, err.Error())
	// domain rule violations share BAD_REQUEST whichever route hits them;
	// VALIDATION_ERROR is reserved for request binding
	case errors.Is(err, usecase.ErrInvalidRequest), errors.Is(err, domain.ErrInvalid):
		writeError(c, http.StatusBadRequest, apierror.CodeBadRequest, err.Error())
	case errors.Is(err, usecase.ErrDuplicate):
		writeError(c, http.StatusConflict, apierror.CodeConflict, "A request with this idempotency key is already in progress.")
	default:
		logging.From(c).Error("unhandled error", "err", err)
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, apierror.CodeInternal, "Unexpected error")
	}
}

// bindError reports a ShouldBindJSON failure as a 400 VALIDATION_ERROR.
func bindError(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, apierror.CodeValidation, validationMessage(err))
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		parts := make([]string, 0, len(ve))
		for _, fe := range ve {
			parts = append(parts, fe.Field()+": "+fieldMessage(fe))
		}
		return strings.Join(parts, "; ")
	}

	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return fmt.Sprintf("%s: must be a %s", ute.Field, ute.Type.Kind())
	}
	var se *json.SyntaxError
	// an empty body surfaces as io.EOF
	if errors.As(err, &se) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "Malformed JSON request"
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return "must not be blank"
		}
		return "must not be null"
	case "gt":
		if fe.Param() == "0" {
			return "must be positive"
		}
		return "must be greater than " + fe.Param()
	case "gte":
		if fe.Param() == "0" {
			return "must be zero or positive"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
