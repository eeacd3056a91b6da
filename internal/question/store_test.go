package question_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizsmith/quizsmith/internal/db"
	"github.com/quizsmith/quizsmith/internal/question"
	"github.com/quizsmith/quizsmith/internal/structure"
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

func seedQuestion(t *testing.T, dbh *sql.DB, id, qtype string, mark float64) {
	t.Helper()
	_, err := dbh.Exec(`INSERT INTO questions (id, qtype, name, default_mark) VALUES ($1,$2,'',$3)`,
		id, qtype, mark)
	require.NoError(t, err)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	s := question.NewSQLStore()
	seedQuestion(t, dbh, "q1", "mcq_single", 1)

	ok, err := s.Exists(ctx, dbh, "q1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, dbh, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsZeroWeight(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	s := question.NewSQLStore()
	seedQuestion(t, dbh, "graded", "mcq_single", 2)
	seedQuestion(t, dbh, "info", question.QTypeDescription, 0)
	seedQuestion(t, dbh, "zeroed", "mcq_single", 0)

	for id, want := range map[string]bool{"graded": false, "info": true, "zeroed": true} {
		got, err := s.IsZeroWeight(ctx, dbh, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}

	_, err := s.IsZeroWeight(ctx, dbh, "ghost")
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestDefaultMark(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	s := question.NewSQLStore()
	seedQuestion(t, dbh, "q1", "mcq_single", 2.5)

	mark, err := s.DefaultMark(ctx, dbh, "q1")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mark, 1e-9)

	_, err = s.DefaultMark(ctx, dbh, "ghost")
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestDeleteIfUnused(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	s := question.NewSQLStore()
	seedQuestion(t, dbh, "rand-used", question.QTypeRandom, 1)
	seedQuestion(t, dbh, "rand-orphan", question.QTypeRandom, 1)
	seedQuestion(t, dbh, "regular", "mcq_single", 1)

	_, err := dbh.Exec(`INSERT INTO quizzes (id, title, created_at) VALUES ('z1','Z',0)`)
	require.NoError(t, err)
	_, err = dbh.Exec(`INSERT INTO quiz_slots (id, quiz_id, ordinal, page, question_ref, max_mark, requires_previous)
		VALUES ('s1','z1',1,1,'rand-used',1,0)`)
	require.NoError(t, err)

	deleted, err := s.DeleteIfUnused(ctx, dbh, "rand-used")
	require.NoError(t, err)
	assert.False(t, deleted, "a referenced random question stays")

	deleted, err = s.DeleteIfUnused(ctx, dbh, "rand-orphan")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteIfUnused(ctx, dbh, "regular")
	require.NoError(t, err)
	assert.False(t, deleted, "only random questions are disposable")

	deleted, err = s.DeleteIfUnused(ctx, dbh, "ghost")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCanFinishDuringAttempt(t *testing.T) {
	ctx := context.Background()
	dbh := newTestDB(t)
	s := question.NewSQLStore()
	seedQuestion(t, dbh, "mcq", "mcq_single", 1)
	seedQuestion(t, dbh, "essay", "essay", 1)
	seedQuestion(t, dbh, "info", question.QTypeDescription, 0)

	cases := []struct {
		id, behaviour string
		want          bool
	}{
		{"mcq", "interactive", true},
		{"mcq", "immediatefeedback", true},
		{"mcq", "deferredfeedback", false},
		{"mcq", "deferredcbm", false},
		{"essay", "interactive", false},
		{"info", "interactive", false},
	}
	for _, tc := range cases {
		got, err := s.CanFinishDuringAttempt(ctx, dbh, tc.id, tc.behaviour)
		require.NoError(t, err, "%s/%s", tc.id, tc.behaviour)
		assert.Equal(t, tc.want, got, "%s/%s", tc.id, tc.behaviour)
	}
}
