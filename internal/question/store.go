// Package question holds the narrow view of the question bank the structure
// coordinator needs. Question authoring and rendering live elsewhere.
package question

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quizsmith/quizsmith/internal/structure"
)

// QTypeRandom marks auto-generated placeholder questions, disposable once no
// slot references them.
const QTypeRandom = "random"

// QTypeDescription is a non-gradable information block.
const QTypeDescription = "description"

type SQLStore struct{}

func NewSQLStore() *SQLStore { return &SQLStore{} }

func (s *SQLStore) Exists(ctx context.Context, tx structure.DBTX, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// IsZeroWeight reports whether the question cannot contribute marks: either a
// description block or a zero default mark.
func (s *SQLStore) IsZeroWeight(ctx context.Context, tx structure.DBTX, id string) (bool, error) {
	var qtype string
	var mark float64
	err := tx.QueryRowContext(ctx, `SELECT qtype, default_mark FROM questions WHERE id=$1`, id).Scan(&qtype, &mark)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, structure.ErrNotFound
		}
		return false, err
	}
	return qtype == QTypeDescription || mark == 0, nil
}

func (s *SQLStore) DefaultMark(ctx context.Context, tx structure.DBTX, id string) (float64, error) {
	var mark float64
	err := tx.QueryRowContext(ctx, `SELECT default_mark FROM questions WHERE id=$1`, id).Scan(&mark)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, structure.ErrNotFound
	}
	return mark, err
}

// DeleteIfUnused removes a random question once no slot in any quiz references
// it. Other question types are never disposed of here.
func (s *SQLStore) DeleteIfUnused(ctx context.Context, tx structure.DBTX, id string) (bool, error) {
	var qtype string
	err := tx.QueryRowContext(ctx, `SELECT qtype FROM questions WHERE id=$1`, id).Scan(&qtype)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if qtype != QTypeRandom {
		return false, nil
	}
	var refs int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_slots WHERE question_ref=$1`, id).Scan(&refs); err != nil {
		return false, err
	}
	if refs > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return false, err
	}
	return true, nil
}

// CanFinishDuringAttempt reports whether a question can reach a finished state
// while the attempt is still open, which is what a requires-previous
// dependency on it needs. Deferred-feedback behaviours only grade at submit,
// so nothing finishes early; manually graded questions never finish early.
func (s *SQLStore) CanFinishDuringAttempt(ctx context.Context, tx structure.DBTX, questionID, behaviour string) (bool, error) {
	switch behaviour {
	case "deferredfeedback", "deferredcbm":
		return false, nil
	}
	var qtype string
	err := tx.QueryRowContext(ctx, `SELECT qtype FROM questions WHERE id=$1`, questionID).Scan(&qtype)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, structure.ErrNotFound
		}
		return false, err
	}
	switch qtype {
	case QTypeDescription, "essay":
		return false, nil
	}
	return true, nil
}
