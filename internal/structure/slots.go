package structure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Store
// helpers take it so reads and writes of one operation run on one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadSlots(ctx context.Context, tx DBTX, quizID string) ([]Slot, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, quiz_id, ordinal, page, question_ref, max_mark, requires_previous
		FROM quiz_slots WHERE quiz_id=$1 ORDER BY ordinal`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.QuizID, &s.Ordinal, &s.Page, &s.QuestionRef, &s.MaxMark, &s.RequiresPrevious); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func slotByID(slots []Slot, id string) (Slot, error) {
	for _, s := range slots {
		if s.ID == id {
			return s, nil
		}
	}
	return Slot{}, fmt.Errorf("%w: slot %q", ErrNotFound, id)
}

func slotByOrdinal(slots []Slot, ordinal int) (Slot, error) {
	if ordinal >= 1 && ordinal <= len(slots) && slots[ordinal-1].Ordinal == ordinal {
		return slots[ordinal-1], nil
	}
	for _, s := range slots {
		if s.Ordinal == ordinal {
			return s, nil
		}
	}
	return Slot{}, fmt.Errorf("%w: slot at ordinal %d", ErrNotFound, ordinal)
}

func insertSlot(ctx context.Context, tx DBTX, s Slot) (Slot, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quiz_slots (id, quiz_id, ordinal, page, question_ref, max_mark, requires_previous)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.QuizID, s.Ordinal, s.Page, s.QuestionRef, s.MaxMark, s.RequiresPrevious)
	return s, err
}

// applyRenumber persists a compiled permutation: park batch first, then the
// final batch, so the unique (quiz, ordinal) index never sees a duplicate.
func applyRenumber(ctx context.Context, tx DBTX, park, final []renumberWrite) error {
	for _, w := range park {
		if _, err := tx.ExecContext(ctx,
			`UPDATE quiz_slots SET ordinal=$1 WHERE id=$2`, w.Ordinal, w.SlotID); err != nil {
			return err
		}
	}
	for _, w := range final {
		if _, err := tx.ExecContext(ctx,
			`UPDATE quiz_slots SET ordinal=$1 WHERE id=$2`, w.Ordinal, w.SlotID); err != nil {
			return err
		}
	}
	return nil
}

func setSlotPage(ctx context.Context, tx DBTX, slotID string, page int) error {
	_, err := tx.ExecContext(ctx, `UPDATE quiz_slots SET page=$1 WHERE id=$2`, page, slotID)
	return err
}

func setSlotMaxMark(ctx context.Context, tx DBTX, slotID string, mark float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE quiz_slots SET max_mark=$1 WHERE id=$2`, mark, slotID)
	return err
}

func setSlotDependency(ctx context.Context, tx DBTX, slotID string, requires bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE quiz_slots SET requires_previous=$1 WHERE id=$2`, requires, slotID)
	return err
}

func deleteSlot(ctx context.Context, tx DBTX, slotID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM quiz_slots WHERE id=$1`, slotID)
	return err
}

// shiftSlotPages adds delta to the page of every slot at or after fromOrdinal.
// Used by page-break link/unlink; page numbers stay non-decreasing because the
// shift applies to a suffix of the ordinal run.
func shiftSlotPages(ctx context.Context, tx DBTX, quizID string, fromOrdinal, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE quiz_slots SET page = page + $1
		WHERE quiz_id=$2 AND ordinal >= $3`, delta, quizID, fromOrdinal)
	return err
}
