// pkg/store/store_test.go
package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex so the mock
// expectations survive SQL reformatting.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func storedEnvelope() (*results.SubmissionEnvelope, []byte) {
	rep := report.New(report.DamageRoadCrack, "Pothole near the bus stop", 37.7749, -122.4194)
	rep.City = "San Francisco"
	rep.Contact.Email = "alex.rivera@example.com"

	env := &results.SubmissionEnvelope{
		SubmissionID:   rep.ID,
		GeneratedAt:    time.Now().UTC(),
		Report:         rep,
		Success:        true,
		Method:         results.MethodAPI,
		TrackingNumber: "101002345678",
		Address:        "123 Market St",
	}
	return env, []byte(`{"submission_id":"` + rep.ID + `"}`)
}

func TestEnsureSchema(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec(flexibleSQLMatcher(schemaSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	st := New(mockPool, zap.NewNop())
	require.NoError(t, st.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEnsureSchemaError(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec(flexibleSQLMatcher(schemaSQL)).
		WillReturnError(errors.New("permission denied"))

	st := New(mockPool, zap.NewNop())
	err = st.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSaveSubmission(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	env, payload := storedEnvelope()
	rep := env.Report

	mockPool.ExpectExec(flexibleSQLMatcher(insertSQL)).
		WithArgs(
			env.SubmissionID,
			rep.ID,
			string(rep.Type),
			rep.Description,
			rep.Latitude,
			rep.Longitude,
			env.Address,
			rep.City,
			env.TrackingNumber,
			string(env.Method),
			env.Success,
			env.Error,
			payload,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	st := New(mockPool, zap.NewNop())
	require.NoError(t, st.SaveSubmission(context.Background(), env, payload))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveSubmissionError(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	env, payload := storedEnvelope()
	mockPool.ExpectExec(flexibleSQLMatcher(insertSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	st := New(mockPool, zap.NewNop())
	err = st.SaveSubmission(context.Background(), env, payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), env.SubmissionID)
}

func TestTrackingNumber(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT tracking_number FROM submissions`).
		WithArgs("report-1").
		WillReturnRows(pgxmock.NewRows([]string{"tracking_number"}).AddRow("101002345678"))

	st := New(mockPool, zap.NewNop())
	tracking, err := st.TrackingNumber(context.Background(), "report-1")
	require.NoError(t, err)
	assert.Equal(t, "101002345678", tracking)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTrackingNumberNotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT tracking_number FROM submissions`).
		WithArgs("missing").
		WillReturnError(errors.New("no rows in result set"))

	st := New(mockPool, zap.NewNop())
	_, err = st.TrackingNumber(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
