package structure

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizsmith/quizsmith/internal/db"
)

func TestDerivePages(t *testing.T) {
	slots := []Slot{
		{ID: "a", Ordinal: 1, Page: 1},
		{ID: "b", Ordinal: 2, Page: 2},
		{ID: "c", Ordinal: 3, Page: 2},
		{ID: "d", Ordinal: 4, Page: 3},
	}
	pages := derivePages(slots)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Len(t, pages[0].Slots, 1)
	assert.Equal(t, 2, pages[1].Number)
	assert.Len(t, pages[1].Slots, 2)
	assert.Equal(t, 3, pages[2].Number)
	assert.Len(t, pages[2].Slots, 1)

	assert.Empty(t, derivePages(nil))
}

func TestCompactPages(t *testing.T) {
	// Raw pages with gaps: 2,2,5,9 should become 1,1,2,3.
	slots := []Slot{
		{ID: "a", Ordinal: 1, Page: 2},
		{ID: "b", Ordinal: 2, Page: 2},
		{ID: "c", Ordinal: 3, Page: 5},
		{ID: "d", Ordinal: 4, Page: 9},
	}
	changes := compactPages(slots)
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 2, "d": 3}, changes)

	// Already dense: nothing to change.
	dense := []Slot{
		{ID: "a", Ordinal: 1, Page: 1},
		{ID: "b", Ordinal: 2, Page: 2},
	}
	assert.Empty(t, compactPages(dense))
}

func newMemDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func pageMetaPages(t *testing.T, dbh *sql.DB, quizID string) []int {
	t.Helper()
	rows, err := dbh.Query(`SELECT page FROM quiz_page_meta WHERE quiz_id=$1 ORDER BY page`, quizID)
	require.NoError(t, err)
	defer rows.Close()
	var out []int
	for rows.Next() {
		var p int
		require.NoError(t, rows.Scan(&p))
		out = append(out, p)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestNormalizePagesIdempotent(t *testing.T) {
	ctx := context.Background()
	dbh := newMemDB(t)

	_, err := dbh.Exec(`INSERT INTO quizzes (id, title, created_at) VALUES ('z1','Quiz',0)`)
	require.NoError(t, err)
	rawPages := []int{2, 2, 5, 9}
	for i, p := range rawPages {
		_, err := dbh.Exec(`
			INSERT INTO quiz_slots (id, quiz_id, ordinal, page, question_ref, max_mark, requires_previous)
			VALUES ($1,'z1',$2,$3,$4,1,0)`,
			fmt.Sprintf("s%d", i+1), i+1, p, fmt.Sprintf("q%d", i+1))
		require.NoError(t, err)
	}
	// Side table starts out of sync: a stale page and a missing one.
	_, err = dbh.Exec(`INSERT INTO quiz_page_meta (quiz_id, page, aux_data) VALUES ('z1',7,'stale')`)
	require.NoError(t, err)

	require.NoError(t, normalizePages(ctx, dbh, "z1"))

	slots, err := loadSlots(ctx, dbh, "z1")
	require.NoError(t, err)
	var pages []int
	for _, s := range slots {
		pages = append(pages, s.Page)
	}
	assert.Equal(t, []int{1, 1, 2, 3}, pages)
	assert.Equal(t, []int{1, 2, 3}, pageMetaPages(t, dbh, "z1"))

	// Second run is a no-op.
	require.NoError(t, normalizePages(ctx, dbh, "z1"))
	slots2, err := loadSlots(ctx, dbh, "z1")
	require.NoError(t, err)
	assert.Equal(t, slots, slots2)
	assert.Equal(t, []int{1, 2, 3}, pageMetaPages(t, dbh, "z1"))
}
