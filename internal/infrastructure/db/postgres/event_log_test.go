package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

func TestAppend_InsertsOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	occurred := time.Date(2026, 2, 19, 6, 0, 0, 0, time.UTC)
	e := &domain.DeedEvent{
		ID: "e1", UserID: "u1", DeedID: "fajr", PointValue: 10,
		OccurredAt: occurred, RecordedAt: occurred.Add(time.Second),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deed_events")).
		WithArgs("e1", "u1", "fajr", int64(10), occurred, occurred.Add(time.Second)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := NewEventLog(db)
	require.NoError(t, log.Append(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRange_BoundedQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows := sqlmock.NewRows([]string{"id", "user_id", "deed_id", "point_value", "occurred_at", "recorded_at"}).
		AddRow("e1", "u1", "fajr", int64(10), start.Add(time.Hour), start.Add(time.Hour)).
		AddRow("e2", "u2", "zuhr", int64(5), start.Add(2*time.Hour), start.Add(2*time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM deed_events")).
		WithArgs(start, end, time.Time{}, "", scanBatchSize).
		WillReturnRows(rows)

	log := NewEventLog(db)
	var got []string
	err = log.ScanRange(context.Background(), start, end, func(e *domain.DeedEvent) error {
		got = append(got, e.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRange_CallbackErrorStopsScan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows := sqlmock.NewRows([]string{"id", "user_id", "deed_id", "point_value", "occurred_at", "recorded_at"}).
		AddRow("e1", "u1", "fajr", int64(10), start.Add(time.Hour), start.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM deed_events")).
		WillReturnRows(rows)

	log := NewEventLog(db)
	wantErr := context.Canceled
	err = log.ScanRange(context.Background(), start, end, func(*domain.DeedEvent) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestCohorts_ReadsAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"cohort_id"}).
		AddRow("district-north").
		AddRow("ward-7")

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_cohorts")).
		WithArgs("u1").
		WillReturnRows(rows)

	repo := NewCohortRepo(db)
	got, err := repo.Cohorts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"district-north", "ward-7"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
