package structure

import "context"

// derivePages groups slots (ordered by ordinal) into pages. Pages are a pure
// derivation over slot rows; there is no mutable page collection anywhere.
func derivePages(slots []Slot) []PageView {
	var pages []PageView
	for _, s := range slots {
		if len(pages) == 0 || pages[len(pages)-1].Number != s.Page {
			pages = append(pages, PageView{Number: s.Page})
		}
		last := &pages[len(pages)-1]
		last.Slots = append(last.Slots, s)
	}
	return pages
}

// compactPages computes the dense renumbering of raw page values: reading
// slots in ordinal order, the page increments exactly where the stored page
// changes. The result maps slot ID to its corrected page, for changed slots
// only, so applying it to an already-dense quiz yields nothing.
func compactPages(slots []Slot) map[string]int {
	changes := map[string]int{}
	page := 0
	prevRaw := -1
	for _, s := range slots {
		if s.Page != prevRaw {
			page++
			prevRaw = s.Page
		}
		if s.Page != page {
			changes[s.ID] = page
		}
	}
	return changes
}

// normalizePages re-derives the dense page numbering from the live slot rows
// and synchronizes the per-page side table: rows for vanished pages are
// deleted, rows for newly realized pages inserted. Idempotent; must run after
// every operation that can change the slot→page mapping.
func normalizePages(ctx context.Context, tx DBTX, quizID string) error {
	slots, err := loadSlots(ctx, tx, quizID)
	if err != nil {
		return err
	}

	realized := map[int]bool{}
	page := 0
	prevRaw := -1
	for _, s := range slots {
		if s.Page != prevRaw {
			page++
			prevRaw = s.Page
		}
		if s.Page != page {
			if err := setSlotPage(ctx, tx, s.ID, page); err != nil {
				return err
			}
		}
		realized[page] = true
	}

	// Side table sync: exactly the realized page set, no orphans, no gaps.
	rows, err := tx.QueryContext(ctx, `SELECT page FROM quiz_page_meta WHERE quiz_id=$1`, quizID)
	if err != nil {
		return err
	}
	existing := map[int]bool{}
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		existing[p] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for p := range existing {
		if !realized[p] {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM quiz_page_meta WHERE quiz_id=$1 AND page=$2`, quizID, p); err != nil {
				return err
			}
		}
	}
	for p := 1; p <= page; p++ {
		if !existing[p] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quiz_page_meta (quiz_id, page, aux_data) VALUES ($1,$2,'')`, quizID, p); err != nil {
				return err
			}
		}
	}
	return nil
}
