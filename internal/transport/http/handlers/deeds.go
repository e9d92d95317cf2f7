package handlers

import (
	"net/http"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/transport/http/dto"
	"github.com/hasanat-app/deeds-service/internal/transport/http/middleware"
	"github.com/hasanat-app/deeds-service/internal/transport/http/response"
	"github.com/hasanat-app/deeds-service/internal/transport/http/validate"
)

// DeedsHandler is the HTTP ingestion path: one completed deed per request,
// attributed to the authenticated user.
type DeedsHandler struct {
	sched *aggregate.Scheduler
	clock aggregate.Clock
}

func NewDeedsHandler(sched *aggregate.Scheduler, clock aggregate.Clock) *DeedsHandler {
	return &DeedsHandler{sched: sched, clock: clock}
}

func (h *DeedsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		response.Fail(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil, response.RequestIDFromRequest(r))
		return
	}

	var req dto.SubmitDeedReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Err(w, r, err)
		return
	}

	e, err := domain.NewDeedEvent(req.EventID, uid, req.DeedID, req.PointValue, req.OccurredAt, h.clock.Now())
	if err != nil {
		response.Err(w, r, err)
		return
	}

	res, err := h.sched.OnEvent(r.Context(), e)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	status := http.StatusCreated
	switch {
	case res.Deduplicated:
		status = http.StatusOK
	case res.ClockSkew:
		// Accepted into an already-finalized period; flagged, not refused.
		status = http.StatusAccepted
	}
	response.Data(w, status, dto.FromApplyResult(res))
}
