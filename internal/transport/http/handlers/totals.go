package handlers

import (
	"net/http"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/period"
	"github.com/hasanat-app/deeds-service/internal/transport/http/dto"
	"github.com/hasanat-app/deeds-service/internal/transport/http/middleware"
	"github.com/hasanat-app/deeds-service/internal/transport/http/response"
)

type TotalsHandler struct {
	store   aggregate.TotalsStore
	periods *period.Resolver
	clock   aggregate.Clock
}

func NewTotalsHandler(store aggregate.TotalsStore, periods *period.Resolver, clock aggregate.Clock) *TotalsHandler {
	return &TotalsHandler{store: store, periods: periods, clock: clock}
}

// Me returns the caller's current day/week/month/all-time totals.
func (h *TotalsHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		response.Fail(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil, response.RequestIDFromRequest(r))
		return
	}

	now := h.clock.Now()
	out := make([]dto.PeriodTotalResp, 0, 4)
	for _, p := range h.periods.PeriodsFor(now) {
		t, err := h.store.UserTotal(r.Context(), uid, p)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		out = append(out, dto.FromTotal(t))
	}
	response.Data(w, http.StatusOK, out)
}
