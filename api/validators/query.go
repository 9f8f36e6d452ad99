package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

// EmailFromQuery extracts and validates the caller's email query parameter.
// Identity arrives as a verified email from the upstream auth layer.
func EmailFromQuery(r *http.Request) (string, error) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email query parameter is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email query parameter must be a valid email")
	}
	return email, nil
}
