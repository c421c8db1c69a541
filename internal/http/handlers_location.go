package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicconnect/portal/internal/adapters/wsgeo"
	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/location"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/service"
)

const selectionSaveTimeout = 5 * time.Second

// LocationHandlers serves the location picker channel of the grievance form.
type LocationHandlers struct {
	Drafts          *service.DraftService
	PositionOptions geo.PositionOptions
	Center          geo.Coordinate
	Metrics         statsd.Sink
	Logger          *slog.Logger
}

func (h *LocationHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Channel upgrades to the location WebSocket for one draft. Every coordinate
// the engine emits becomes the draft's location and is echoed to the page.
// GET /ws/location?draft=<id>.
func (h *LocationHandlers) Channel(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	draftID := r.URL.Query().Get("draft")
	if draftID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation_failed",
			Err:     errors.New("draft is required"),
			Field:   "draft",
		})
		return
	}
	draft, err := h.Drafts.Get(r.Context(), draftID, sess.UserID)
	if err != nil {
		writeServiceError(w, "get_failed", err)
		return
	}

	conn, err := wsgeo.Upgrade(w, r)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger().DebugContext(r.Context(), "location channel upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	logger := h.logger().With("draft_id", draftID, "user_id", sess.UserID)
	bridge := wsgeo.NewBridge(conn, wsgeo.Options{Logger: logger})
	capability := location.WithPositionCache(bridge, nil)

	engine := location.NewEngine(location.Options{
		Capability:      capability,
		Notifier:        bridge,
		PositionOptions: h.PositionOptions,
		Center:          h.Center,
		Logger:          logger,
		Metrics:         h.Metrics,
		OnSelect: func(lat, lng float64) {
			c := geo.Coordinate{Lat: lat, Lng: lng}
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), selectionSaveTimeout)
			defer cancel()
			if err := h.Drafts.SelectLocation(saveCtx, draftID, sess.UserID, c); err != nil {
				logger.WarnContext(ctx, "location not saved to draft", "error", err)
				bridge.Notify(ctx, geo.Notice{
					Level:   geo.NoticeError,
					Message: "We could not save this location. Please reload the form and try again.",
				})
				return
			}
			bridge.SendSelection(ctx, c)
		},
	})

	if draft.Location != nil {
		bridge.SendSelection(ctx, *draft.Location)
	}
	logger.InfoContext(ctx, "location channel opened")
	bridge.Run(ctx, engine)
	logger.InfoContext(ctx, "location channel closed")
}
