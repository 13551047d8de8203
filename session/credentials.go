package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
)

// LoginRequest is the body of the token issuance endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of the registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateCredentials turns validator output into an AuthError naming the offending fields.
func validateCredentials(op string, req any) error {
	err := engine().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &errors.AuthError{Op: op, Reason: err.Error(), Err: errors.ErrInvalidCredentials}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return &errors.AuthError{
		Op:     op,
		Reason: "invalid credentials: " + strings.Join(problems, ", "),
		Err:    errors.ErrInvalidCredentials,
	}
}
