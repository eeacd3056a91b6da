// Package attempt exposes the two hooks the structure coordinator needs from
// the attempt/grading engine: the edit-lock oracle and the retroactive
// max-mark writer. Attempt lifecycle and grading live elsewhere.
package attempt

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quizsmith/quizsmith/internal/structure"
)

type SQLEngine struct{}

func NewSQLEngine() *SQLEngine { return &SQLEngine{} }

// HasAnyRealAttempt is the sole input to the quiz's editable predicate.
// Teacher previews do not count.
func (e *SQLEngine) HasAnyRealAttempt(ctx context.Context, tx structure.DBTX, quizID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `
		SELECT 1 FROM quiz_attempts WHERE quiz_id=$1 AND preview=$2 LIMIT 1`,
		quizID, false).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ApplyNewMaxMark rewrites the stored maximum on the mark row of every
// attempt for the given slot position. It deliberately leaves each attempt's
// aggregate score and the quiz's aggregate maximum alone; recomputing those
// is the caller's responsibility.
func (e *SQLEngine) ApplyNewMaxMark(ctx context.Context, tx structure.DBTX, quizID string, ordinal int, newMark float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE attempt_marks SET max_mark=$1
		WHERE ordinal=$2 AND attempt_id IN (SELECT id FROM quiz_attempts WHERE quiz_id=$3)`,
		newMark, ordinal, quizID)
	return err
}
