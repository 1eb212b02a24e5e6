package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aq2208/bookstore-api/internal/adapter/observ"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
)

// ExportCartHandler runs cart exports requested through POST /cart/export?async=true.
type ExportCartHandler struct {
	exporter usecase.CartExport
}

func NewExportCartHandler(exporter usecase.CartExport) *ExportCartHandler {
	return &ExportCartHandler{exporter: exporter}
}

// HandleExport is intended to be used with queue.JSONHandler[usecase.ExportCartRequestedMsg].
func (h *ExportCartHandler) HandleExport(ctx context.Context, msg usecase.ExportCartRequestedMsg) error {
	if msg.UserID == "" {
		return fmt.Errorf("%w: export request without user", ErrPoison)
	}
	path, err := h.exporter.ExportCartForUser(ctx, msg.UserID)
	observ.RecordExport(observ.ModeWorker, err)
	if errors.Is(err, usecase.ErrExportNotConfigured) {
		return fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("async cart export done", "user", msg.UserID, "path", path)
	return nil
}
