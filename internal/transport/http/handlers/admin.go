package handlers

import (
	"net/http"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/transport/http/dto"
	"github.com/hasanat-app/deeds-service/internal/transport/http/response"
	"github.com/hasanat-app/deeds-service/internal/transport/http/validate"
)

type AdminHandler struct {
	svc *aggregate.Service
}

func NewAdminHandler(svc *aggregate.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Recompute rebuilds one period's totals from the event log. Used for repair
// after partial failures and for backfill; safe to run while ingestion
// continues.
func (h *AdminHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req dto.RecomputeReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Err(w, r, err)
		return
	}

	p := domain.Period{Kind: domain.PeriodKind(req.PeriodKind), Key: req.PeriodKey}
	totals, err := h.svc.Recompute(r.Context(), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, dto.RecomputeResp{
		PeriodKind: req.PeriodKind,
		PeriodKey:  req.PeriodKey,
		Users:      len(totals),
	})
}
