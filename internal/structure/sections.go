package structure

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// loadSections returns the quiz's sections ordered by first slot, with
// LastSlot derived from the following section (or slotCount for the last).
func loadSections(ctx context.Context, tx DBTX, quizID string, slotCount int) ([]Section, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, quiz_id, first_slot, heading, shuffle
		FROM quiz_sections WHERE quiz_id=$1 ORDER BY first_slot`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.QuizID, &s.FirstSlot, &s.Heading, &s.Shuffle); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].LastSlot = out[i+1].FirstSlot - 1
		} else {
			out[i].LastSlot = slotCount
		}
	}
	return out, nil
}

func sectionByID(sections []Section, id string) (Section, error) {
	for _, s := range sections {
		if s.ID == id {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("%w: section %q", ErrNotFound, id)
}

// sectionOf returns the section a given ordinal belongs to.
func sectionOf(sections []Section, ordinal int) (Section, bool) {
	for i := len(sections) - 1; i >= 0; i-- {
		if sections[i].FirstSlot <= ordinal {
			return sections[i], true
		}
	}
	return Section{}, false
}

// isOnlySlotInSection reports whether the section containing ordinal has
// exactly one slot.
func isOnlySlotInSection(sections []Section, ordinal int) bool {
	sec, ok := sectionOf(sections, ordinal)
	return ok && sec.FirstSlot == sec.LastSlot
}

func insertSection(ctx context.Context, tx DBTX, s Section) (Section, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quiz_sections (id, quiz_id, first_slot, heading, shuffle)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.QuizID, s.FirstSlot, s.Heading, s.Shuffle)
	return s, err
}

func setSectionHeading(ctx context.Context, tx DBTX, sectionID, heading string) error {
	_, err := tx.ExecContext(ctx, `UPDATE quiz_sections SET heading=$1 WHERE id=$2`, heading, sectionID)
	return err
}

func setSectionShuffle(ctx context.Context, tx DBTX, sectionID string, shuffle bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE quiz_sections SET shuffle=$1 WHERE id=$2`, shuffle, sectionID)
	return err
}

func deleteSection(ctx context.Context, tx DBTX, sectionID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM quiz_sections WHERE id=$1`, sectionID)
	return err
}

// shiftBoundaries adds delta to every section first slot strictly inside
// (after, before). The first section is pinned at slot 1 and never moves.
// Rows are updated one at a time in an order that cannot trip the unique
// (quiz, first_slot) index: descending for positive delta, ascending for
// negative.
func shiftBoundaries(ctx context.Context, tx DBTX, quizID string, after, before, delta int) error {
	if delta == 0 {
		return nil
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT id, first_slot FROM quiz_sections
		WHERE quiz_id=$1 AND first_slot > $2 AND first_slot < $3 AND first_slot > 1`,
		quizID, after, before)
	if err != nil {
		return err
	}
	type row struct {
		id    string
		first int
	}
	var affected []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.first); err != nil {
			rows.Close()
			return err
		}
		affected = append(affected, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(affected, func(i, j int) bool {
		if delta > 0 {
			return affected[i].first > affected[j].first
		}
		return affected[i].first < affected[j].first
	})
	for _, r := range affected {
		if _, err := tx.ExecContext(ctx,
			`UPDATE quiz_sections SET first_slot=$1 WHERE id=$2`, r.first+delta, r.id); err != nil {
			return err
		}
	}
	return nil
}
