package attempt_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizsmith/quizsmith/internal/attempt"
	"github.com/quizsmith/quizsmith/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func seedAttempt(t *testing.T, dbh *sql.DB, id, quizID string, preview bool) {
	t.Helper()
	_, err := dbh.Exec(`INSERT INTO quiz_attempts (id, quiz_id, user_id, state, preview, started_at)
		VALUES ($1,$2,'u1','in_progress',$3,0)`, id, quizID, preview)
	require.NoError(t, err)
}

func TestHasAnyRealAttemptIgnoresPreviews(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	e := attempt.NewSQLEngine()

	_, err := dbh.Exec(`INSERT INTO quizzes (id, title, created_at) VALUES ('z1','Z',0)`)
	require.NoError(t, err)

	locked, err := e.HasAnyRealAttempt(ctx, dbh, "z1")
	require.NoError(t, err)
	assert.False(t, locked)

	seedAttempt(t, dbh, "prev", "z1", true)
	locked, err = e.HasAnyRealAttempt(ctx, dbh, "z1")
	require.NoError(t, err)
	assert.False(t, locked, "teacher previews do not lock the quiz")

	seedAttempt(t, dbh, "real", "z1", false)
	locked, err = e.HasAnyRealAttempt(ctx, dbh, "z1")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestApplyNewMaxMarkScopesByQuizAndOrdinal(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	e := attempt.NewSQLEngine()

	for _, q := range []string{"z1", "z2"} {
		_, err := dbh.Exec(`INSERT INTO quizzes (id, title, created_at) VALUES ($1,'Z',0)`, q)
		require.NoError(t, err)
	}
	seedAttempt(t, dbh, "a1", "z1", false)
	seedAttempt(t, dbh, "a2", "z2", false)
	for _, row := range []struct {
		attempt string
		ordinal int
	}{{"a1", 1}, {"a1", 2}, {"a2", 1}} {
		_, err := dbh.Exec(`INSERT INTO attempt_marks (attempt_id, ordinal, mark, max_mark)
			VALUES ($1,$2,0.25,1)`, row.attempt, row.ordinal)
		require.NoError(t, err)
	}

	require.NoError(t, e.ApplyNewMaxMark(ctx, dbh, "z1", 1, 5))

	readMax := func(att string, ord int) float64 {
		var m float64
		require.NoError(t, dbh.QueryRow(
			`SELECT max_mark FROM attempt_marks WHERE attempt_id=$1 AND ordinal=$2`, att, ord).Scan(&m))
		return m
	}
	assert.InDelta(t, 5, readMax("a1", 1), 1e-9)
	assert.InDelta(t, 1, readMax("a1", 2), 1e-9, "other ordinals untouched")
	assert.InDelta(t, 1, readMax("a2", 1), 1e-9, "other quizzes untouched")

	var mark float64
	require.NoError(t, dbh.QueryRow(
		`SELECT mark FROM attempt_marks WHERE attempt_id='a1' AND ordinal=1`).Scan(&mark))
	assert.InDelta(t, 0.25, mark, 1e-9, "achieved marks are not rescaled")
}
