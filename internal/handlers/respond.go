package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// writeOutcome renders a service result. Named business failures keep the 202 failure
// envelope existing clients branch on; anything else is a server error.
func writeOutcome(w http.ResponseWriter, r *http.Request, logger *slog.Logger, out *models.Outcome, err error) {
	if err == nil {
		if out == nil {
			out = models.Succeeded("", nil)
		}
		pkghttp.WriteJSON(w, http.StatusOK, out)
		return
	}

	var coded *models.CodedError
	if errors.As(err, &coded) {
		pkghttp.WriteJSON(w, http.StatusAccepted, models.Failed(coded.Code, nil))
		return
	}

	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	pkghttp.WriteJSON(w, http.StatusInternalServerError, models.Failed(models.MsgServerSideError, nil))
}

// queryInt64 parses a required positive integer query parameter
func queryInt64(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
