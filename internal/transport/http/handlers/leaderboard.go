package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/period"
	"github.com/hasanat-app/deeds-service/internal/transport/http/dto"
	"github.com/hasanat-app/deeds-service/internal/transport/http/response"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

type LeaderboardHandler struct {
	ranker  *aggregate.Ranker
	periods *period.Resolver
	clock   aggregate.Clock
}

func NewLeaderboardHandler(ranker *aggregate.Ranker, periods *period.Resolver, clock aggregate.Clock) *LeaderboardHandler {
	return &LeaderboardHandler{ranker: ranker, periods: periods, clock: clock}
}

// Get serves GET /leaderboard?period=day&at=RFC3339&cohort=X&limit=N.
// `at` selects which day/week/month window; it defaults to now, so the plain
// query is always "today's board" in the reference timezone.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := domain.PeriodKind(q.Get("period"))
	if kind == "" {
		kind = domain.KindDay
	}
	if !kind.Valid() {
		response.Err(w, r, domain.ErrValidation("period must be one of day|week|month|all"))
		return
	}

	at := h.clock.Now()
	if raw := q.Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Err(w, r, domain.ErrValidation("at must be RFC3339"))
			return
		}
		at = parsed
	}

	limit := defaultLeaderboardLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Err(w, r, domain.ErrValidation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	p, err := h.periods.PeriodAt(kind, at)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	lb, err := h.ranker.Rank(r.Context(), p, q.Get("cohort"), limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.FromLeaderboard(lb))
}
