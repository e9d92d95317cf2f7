package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/config"
	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/period"
	"github.com/hasanat-app/deeds-service/internal/transport/http/handlers"
	authmw "github.com/hasanat-app/deeds-service/internal/transport/http/middleware"
)

// stubClock prevents nil pointer panic in handlers
type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC) }

// stubStore must implement all methods of aggregate.TotalsStore
type stubStore struct{}

func (stubStore) AddPoints(ctx context.Context, eventID, userID string, p domain.Period, points int64, occurredAt, now time.Time) (aggregate.AddResult, error) {
	return aggregate.AddResult{Total: points, Applied: true}, nil
}
func (stubStore) UserTotal(ctx context.Context, userID string, p domain.Period) (domain.UserPeriodTotal, error) {
	return domain.UserPeriodTotal{UserID: userID, Period: p}, nil
}
func (stubStore) Snapshot(ctx context.Context, p domain.Period) ([]domain.UserPeriodTotal, error) {
	return nil, nil
}
func (stubStore) Finalize(ctx context.Context, p domain.Period) (bool, error) { return true, nil }
func (stubStore) Reopen(ctx context.Context, p domain.Period) error           { return nil }
func (stubStore) ReplaceTotals(ctx context.Context, p domain.Period, totals []domain.UserPeriodTotal) error {
	return nil
}

type stubLog struct{}

func (stubLog) Append(ctx context.Context, e *domain.DeedEvent) error { return nil }
func (stubLog) ScanRange(ctx context.Context, start, end time.Time, fn func(*domain.DeedEvent) error) error {
	return nil
}

type stubCohorts struct{}

func (stubCohorts) Cohorts(ctx context.Context, userID string) ([]string, error) { return nil, nil }

func mintToken(t *testing.T, secret, uid, role string) string {
	t.Helper()
	claims := authmw.Claims{
		UserID: uid,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return ss
}

func TestRouter_Routing(t *testing.T) {
	secret := "secret"
	auth := authmw.NewAuth(secret, "issuer")
	clock := stubClock{}

	res, err := period.NewResolver("Asia/Dhaka", time.Monday)
	require.NoError(t, err)

	svc := aggregate.New(stubLog{}, stubStore{}, res, clock, 3, time.Millisecond)
	sched := aggregate.NewScheduler(svc, stubStore{}, res, clock, nil, time.Minute)
	ranker := aggregate.NewRanker(stubStore{}, stubCohorts{})

	deeds := handlers.NewDeedsHandler(sched, clock)
	lb := handlers.NewLeaderboardHandler(ranker, res, clock)
	totals := handlers.NewTotalsHandler(stubStore{}, res, clock)
	admin := handlers.NewAdminHandler(svc)
	z := handlers.NewHealthHandler()

	cfg := &config.Config{
		RLEnabled: false,
	}

	r := New(deeds, lb, totals, admin, z, auth, cfg)

	t.Run("healthz_returns_200", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("metrics_exposed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("leaderboard_is_public", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/deeds/v1/leaderboard", nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("submit_requires_token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/deeds/v1/deeds", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("submit_with_token_reaches_handler", func(t *testing.T) {
		body := `{"deed_id":"deed-fajr","point_value":5,"occurred_at":"2026-02-19T09:00:00Z"}`
		req := httptest.NewRequest("POST", "/deeds/v1/deeds", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, "user-1", "user"))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("me_totals_requires_token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/deeds/v1/me/totals", nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("recompute_rejects_plain_users", func(t *testing.T) {
		body := `{"period_kind":"day","period_key":"2026-02-19"}`
		req := httptest.NewRequest("POST", "/deeds/v1/admin/recompute", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, "user-1", "user"))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("recompute_allows_admins", func(t *testing.T) {
		body := `{"period_kind":"day","period_key":"2026-02-19"}`
		req := httptest.NewRequest("POST", "/deeds/v1/admin/recompute", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, "admin-1", "admin"))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unknown_route_404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/deeds/v1/nope", nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
