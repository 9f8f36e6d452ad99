package controllers

import (
	"net/http"
	"strings"

	"github.com/renpay/renpay-backend/api/responses"
	"github.com/renpay/renpay-backend/internal/media"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
)

// MediaFetch proxies a shared Drive or Dropbox folder link into a browsable
// file listing.
func MediaFetch(svc *media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		link := strings.TrimSpace(r.URL.Query().Get("link"))
		if link == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "link is required"))
			return
		}

		result, err := svc.Fetch(ctx, link)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
