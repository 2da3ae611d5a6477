package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/middleware"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks msg's struct tags and returns an InvalidArgument error.
func validateRequest(msg any) error {
	err := validate.Struct(msg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return connect.NewError(connect.CodeInvalidArgument, errors.New(strings.Join(msgs, "; ")))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Request.field[0].subfield"; drop the message name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// toConnectError maps an error kind to its Connect code.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	default:
		switch errs.KindOf(err) {
		case errs.KindValidation:
			code = connect.CodeInvalidArgument
		case errs.KindForbidden:
			code = connect.CodePermissionDenied
		case errs.KindNotFound:
			code = connect.CodeNotFound
		case errs.KindConflict:
			code = connect.CodeAlreadyExists
		case errs.KindUnauthenticated:
			code = connect.CodeUnauthenticated
		}
	}
	return connect.NewError(code, err)
}

// requireUser returns the authenticated user ID set by the auth interceptor.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}
