package structure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// QuestionStore is the question-bank collaborator. Question content and
// lifecycle are owned externally; the coordinator only needs these narrow
// queries, executed on its own transaction.
type QuestionStore interface {
	Exists(ctx context.Context, tx DBTX, id string) (bool, error)
	IsZeroWeight(ctx context.Context, tx DBTX, id string) (bool, error)
	DefaultMark(ctx context.Context, tx DBTX, id string) (float64, error)
	// DeleteIfUnused removes a disposable (auto-generated random) question if
	// no slot anywhere references it. Reports whether a delete happened.
	DeleteIfUnused(ctx context.Context, tx DBTX, id string) (bool, error)
	CanFinishDuringAttempt(ctx context.Context, tx DBTX, questionID, behaviour string) (bool, error)
}

// AttemptEngine is the attempt/grading collaborator: the edit-lock oracle and
// the retroactive mark writer.
type AttemptEngine interface {
	HasAnyRealAttempt(ctx context.Context, tx DBTX, quizID string) (bool, error)
	ApplyNewMaxMark(ctx context.Context, tx DBTX, quizID string, ordinal int, newMark float64) error
}

// EventSink receives one audit event per successful mutation, inside the
// mutation's transaction.
type EventSink interface {
	Append(ctx context.Context, tx DBTX, typ, key, dataJSON string) error
}

// Coordinator is the façade over slot order, page grouping and section
// grouping. Every mutation recomputes all three partitions inside one
// transaction; contention surfaces as ErrBusy and is safe to retry.
type Coordinator struct {
	db        *sql.DB
	driver    string
	questions QuestionStore
	attempts  AttemptEngine
	events    EventSink
	log       *zap.Logger
}

func NewCoordinator(db *sql.DB, driver string, questions QuestionStore, attempts AttemptEngine, events EventSink, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{db: db, driver: driver, questions: questions, attempts: attempts, events: events, log: log}
}

// withTx runs fn inside one transaction. On postgres the isolation level is
// raised to serializable; sqlite transactions are serializable already and
// the modernc driver rejects explicit levels.
func (c *Coordinator) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	opts := &sql.TxOptions{}
	if c.driver == "postgres" {
		opts.Isolation = sql.LevelSerializable
	}
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

func (c *Coordinator) requireEditable(ctx context.Context, tx DBTX, quizID string) error {
	locked, err := c.attempts.HasAnyRealAttempt(ctx, tx, quizID)
	if err != nil {
		return err
	}
	if locked {
		return ErrLocked
	}
	return nil
}

func (c *Coordinator) emit(ctx context.Context, tx DBTX, typ, quizID string, payload any) error {
	if c.events == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.events.Append(ctx, tx, typ, quizID, string(data))
}

// AppendSlot places a question at the end of the quiz. targetPage 0 means the
// current last page; otherwise only the last page or the page after it are
// accepted. The first slot of a quiz also creates the initial section.
func (c *Coordinator) AppendSlot(ctx context.Context, quizID, questionRef string, targetPage int) (Slot, error) {
	var created Slot
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: quiz %q", ErrNotFound, quizID)
			}
			return err
		}
		exists, err := c.questions.Exists(ctx, tx, questionRef)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: question %q", ErrNotFound, questionRef)
		}

		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		lastPage := 0
		if n := len(slots); n > 0 {
			lastPage = slots[n-1].Page
		}
		page := targetPage
		if page == 0 {
			page = lastPage
			if page == 0 {
				page = 1
			}
		}
		if len(slots) == 0 {
			if page != 1 {
				return fmt.Errorf("%w: page %d on an empty quiz", ErrInvalidTargetPage, page)
			}
		} else if page < lastPage || page > lastPage+1 {
			return fmt.Errorf("%w: page %d, last page is %d", ErrInvalidTargetPage, page, lastPage)
		}

		mark, err := c.questions.DefaultMark(ctx, tx, questionRef)
		if err != nil {
			return err
		}
		created, err = insertSlot(ctx, tx, Slot{
			QuizID:      quizID,
			Ordinal:     len(slots) + 1,
			Page:        page,
			QuestionRef: questionRef,
			MaxMark:     mark,
		})
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			if _, err := insertSection(ctx, tx, Section{QuizID: quizID, FirstSlot: 1}); err != nil {
				return err
			}
		}
		if err := normalizePages(ctx, tx, quizID); err != nil {
			return err
		}
		return c.emit(ctx, tx, "slot_added", quizID, map[string]any{
			"slot_id": created.ID, "ordinal": created.Ordinal, "question_ref": questionRef,
		})
	})
	if err != nil {
		return Slot{}, err
	}
	return created, nil
}

// MoveSlot repositions movingID directly after afterID (empty afterID means
// the very top) and onto targetPage. Section boundaries are shifted so that
// no boundary ends up strictly inside the reordered block: a boundary either
// keeps its original first slot, or, when the destination is the start of a
// page that begins a section, absorbs the moved slot.
func (c *Coordinator) MoveSlot(ctx context.Context, quizID, movingID, afterID string, targetPage int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		moving, err := slotByID(slots, movingID)
		if err != nil {
			return err
		}
		m := moving.Ordinal
		a := 0
		if afterID != "" {
			after, err := slotByID(slots, afterID)
			if err != nil {
				return err
			}
			a = after.Ordinal
		}
		if targetPage == 0 {
			targetPage = 1
		}

		// Validate the target page against its neighbours. When afterID is the
		// final slot the upper bound is open: moving to the end may start a
		// fresh page.
		if targetPage < 1 {
			return fmt.Errorf("%w: page %d", ErrInvalidTargetPage, targetPage)
		}
		if a > 0 && targetPage < slots[a-1].Page {
			return fmt.Errorf("%w: page %d is before the page of the preceding slot", ErrInvalidTargetPage, targetPage)
		}
		following := a + 1
		if following == m {
			following++
		}
		if following <= len(slots) && targetPage > slots[following-1].Page {
			return fmt.Errorf("%w: page %d is past the page of the following slot", ErrInvalidTargetPage, targetPage)
		}

		if a == m {
			a = m - 1
		}

		// The moved slot becomes the first slot of targetPage when it is sent
		// to the very top, or past the last slot of an earlier page.
		destStartsPage := a == 0 || slots[a-1].Page < targetPage

		var perm map[int]int
		var shiftAfter, shiftBefore, shiftDelta int
		switch {
		case a > m: // moving down
			perm = map[int]int{m: a}
			for i := m + 1; i <= a; i++ {
				perm[i] = i - 1
			}
			shiftDelta = -1
			shiftAfter = m
			shiftBefore = a + 1
			if destStartsPage {
				shiftBefore = a + 2
			}
		case a < m-1: // moving up
			perm = map[int]int{m: a + 1}
			for i := a + 1; i < m; i++ {
				perm[i] = i + 1
			}
			shiftDelta = 1
			shiftAfter = a
			shiftBefore = m + 1
			if destStartsPage {
				shiftAfter = a + 1
			}
		default: // staying in place, possibly changing page
			if targetPage == moving.Page {
				return nil
			}
			if targetPage > moving.Page {
				// Slot slides forward onto the next page; a section starting
				// where that page starts absorbs it.
				shiftDelta = -1
				shiftAfter = m
				shiftBefore = m + 2
			} else {
				// Slot slides back onto the previous page; a section starting
				// at the slot releases it to the section before.
				shiftDelta = 1
				shiftAfter = m - 1
				shiftBefore = m + 1
			}
		}

		sections, err := loadSections(ctx, tx, quizID, len(slots))
		if err != nil {
			return err
		}
		if isOnlySlotInSection(sections, m) {
			return ErrCannotRemoveLastSlotInSection
		}

		if perm != nil {
			park, final, err := compileRenumber(slots, perm)
			if err != nil {
				return err
			}
			if err := applyRenumber(ctx, tx, park, final); err != nil {
				return err
			}
		}
		if moving.Page != targetPage {
			if err := setSlotPage(ctx, tx, moving.ID, targetPage); err != nil {
				return err
			}
		}
		if err := shiftBoundaries(ctx, tx, quizID, shiftAfter, shiftBefore, shiftDelta); err != nil {
			return err
		}
		if err := normalizePages(ctx, tx, quizID); err != nil {
			return err
		}
		return c.emit(ctx, tx, "slot_moved", quizID, map[string]any{
			"slot_id": movingID, "after_id": afterID, "page": targetPage,
		})
	})
}

// RemoveSlot deletes the slot at ordinal, closes the ordinal gap, realigns
// section boundaries and pages, and disposes of the slot's question if it was
// auto-generated and is referenced nowhere else.
func (c *Coordinator) RemoveSlot(ctx context.Context, quizID string, ordinal int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		slot, err := slotByOrdinal(slots, ordinal)
		if err != nil {
			return err
		}
		sections, err := loadSections(ctx, tx, quizID, len(slots))
		if err != nil {
			return err
		}
		if isOnlySlotInSection(sections, ordinal) {
			return ErrCannotRemoveLastSlotInSection
		}

		if err := deleteSlot(ctx, tx, slot.ID); err != nil {
			return err
		}
		remaining := make([]Slot, 0, len(slots)-1)
		for _, s := range slots {
			if s.ID != slot.ID {
				remaining = append(remaining, s)
			}
		}
		perm := map[int]int{}
		for i := ordinal + 1; i <= len(slots); i++ {
			perm[i] = i - 1
		}
		park, final, err := compileRenumber(remaining, perm)
		if err != nil {
			return err
		}
		if err := applyRenumber(ctx, tx, park, final); err != nil {
			return err
		}
		if err := shiftBoundaries(ctx, tx, quizID, ordinal, len(slots)+2, -1); err != nil {
			return err
		}
		if _, err := c.questions.DeleteIfUnused(ctx, tx, slot.QuestionRef); err != nil {
			return err
		}
		if err := normalizePages(ctx, tx, quizID); err != nil {
			return err
		}
		return c.emit(ctx, tx, "slot_removed", quizID, map[string]any{
			"slot_id": slot.ID, "ordinal": ordinal,
		})
	})
}

// UpdatePageBreak inserts (Unlink) or removes (Link) the page break before a
// slot. A break that is already in the requested state is a no-op.
func (c *Coordinator) UpdatePageBreak(ctx context.Context, quizID, slotID string, op PageBreakOp) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		slot, err := slotByID(slots, slotID)
		if err != nil {
			return err
		}
		firstOnPage := slot.Ordinal == 1 || slots[slot.Ordinal-2].Page != slot.Page

		changed := false
		switch op {
		case PageBreakUnlink:
			if slot.Ordinal > 1 && !firstOnPage {
				if err := shiftSlotPages(ctx, tx, quizID, slot.Ordinal, 1); err != nil {
					return err
				}
				changed = true
			}
		case PageBreakLink:
			if firstOnPage && slot.Page > 1 {
				if err := shiftSlotPages(ctx, tx, quizID, slot.Ordinal, -1); err != nil {
					return err
				}
				changed = true
			}
		default:
			return fmt.Errorf("unknown page break op %d", op)
		}
		if !changed {
			return nil
		}
		if err := normalizePages(ctx, tx, quizID); err != nil {
			return err
		}
		return c.emit(ctx, tx, "page_break_updated", quizID, map[string]any{
			"slot_id": slotID, "op": int(op),
		})
	})
}

// UpdateSlotMaxMark persists a new maximum mark and pushes it into every
// existing attempt's mark row for that slot. Deltas below the float-noise
// tolerance are no-ops. The quiz's aggregate maximum is deliberately not
// recomputed here; that is the caller's contract. No edit lock: the
// retroactive regrade path exists precisely for post-attempt mark changes.
func (c *Coordinator) UpdateSlotMaxMark(ctx context.Context, quizID, slotID string, mark float64) (bool, error) {
	changed := false
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		slot, err := slotByID(slots, slotID)
		if err != nil {
			return err
		}
		if math.Abs(mark-slot.MaxMark) < markTolerance {
			return nil
		}
		if err := setSlotMaxMark(ctx, tx, slot.ID, mark); err != nil {
			return err
		}
		if err := c.attempts.ApplyNewMaxMark(ctx, tx, quizID, slot.Ordinal, mark); err != nil {
			return err
		}
		changed = true
		return c.emit(ctx, tx, "slot_maxmark_updated", quizID, map[string]any{
			"slot_id": slotID, "max_mark": mark,
		})
	})
	return changed, err
}

// UpdateQuestionDependency persists the requires-previous flag. Permitted even
// after attempts exist: the flag only gates navigation in new attempts.
func (c *Coordinator) UpdateQuestionDependency(ctx context.Context, quizID, slotID string, requires bool) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		slot, err := slotByID(slots, slotID)
		if err != nil {
			return err
		}
		if err := setSlotDependency(ctx, tx, slot.ID, requires); err != nil {
			return err
		}
		return c.emit(ctx, tx, "slot_dependency_updated", quizID, map[string]any{
			"slot_id": slotID, "requires_previous": requires,
		})
	})
}

// CanAddDependency reports whether the slot may require its predecessor to be
// finished: there must be a predecessor, and its question must be finishable
// mid-attempt under the given behaviour.
func (c *Coordinator) CanAddDependency(ctx context.Context, quizID, slotID, behaviour string) (bool, error) {
	var ok bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		slot, err := slotByID(slots, slotID)
		if err != nil {
			return err
		}
		if slot.Ordinal <= 1 {
			return nil
		}
		prev := slots[slot.Ordinal-2]
		ok, err = c.questions.CanFinishDuringAttempt(ctx, tx, prev.QuestionRef, behaviour)
		return err
	})
	return ok, err
}

// AddSectionHeading starts a new section at the first slot of the given page.
// The first page is ineligible (the first section already starts at slot 1),
// as is a page whose first slot already begins a section.
func (c *Coordinator) AddSectionHeading(ctx context.Context, quizID string, page int, heading string) (Section, error) {
	var created Section
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if page <= 1 {
			return fmt.Errorf("%w: a heading on the first page is redundant", ErrInvalidPage)
		}
		firstOrdinal := 0
		for _, s := range slots {
			if s.Page == page {
				firstOrdinal = s.Ordinal
				break
			}
		}
		if firstOrdinal == 0 {
			return fmt.Errorf("%w: no slots on page %d", ErrInvalidPage, page)
		}
		sections, err := loadSections(ctx, tx, quizID, len(slots))
		if err != nil {
			return err
		}
		for _, sec := range sections {
			if sec.FirstSlot == firstOrdinal {
				return fmt.Errorf("%w: a section already starts on page %d", ErrInvalidPage, page)
			}
		}
		created, err = insertSection(ctx, tx, Section{QuizID: quizID, FirstSlot: firstOrdinal, Heading: heading})
		if err != nil {
			return err
		}
		return c.emit(ctx, tx, "section_added", quizID, map[string]any{
			"section_id": created.ID, "first_slot": firstOrdinal, "heading": heading,
		})
	})
	if err != nil {
		return Section{}, err
	}
	return created, nil
}

// RenameSection updates the heading. Cosmetic, so no edit lock.
func (c *Coordinator) RenameSection(ctx context.Context, quizID, sectionID, heading string) error {
	return c.updateSectionMeta(ctx, quizID, sectionID, func(tx *sql.Tx, sec Section) error {
		return setSectionHeading(ctx, tx, sec.ID, heading)
	})
}

// SetSectionShuffle toggles shuffling. Cosmetic, so no edit lock.
func (c *Coordinator) SetSectionShuffle(ctx context.Context, quizID, sectionID string, shuffle bool) error {
	return c.updateSectionMeta(ctx, quizID, sectionID, func(tx *sql.Tx, sec Section) error {
		return setSectionShuffle(ctx, tx, sec.ID, shuffle)
	})
}

func (c *Coordinator) updateSectionMeta(ctx context.Context, quizID, sectionID string, apply func(tx *sql.Tx, sec Section) error) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		sections, err := loadSections(ctx, tx, quizID, len(slots))
		if err != nil {
			return err
		}
		sec, err := sectionByID(sections, sectionID)
		if err != nil {
			return err
		}
		if err := apply(tx, sec); err != nil {
			return err
		}
		return c.emit(ctx, tx, "section_updated", quizID, map[string]any{
			"section_id": sectionID,
		})
	})
}

// RemoveSection deletes a section heading; its slots merge into the previous
// section. The first section is permanent.
func (c *Coordinator) RemoveSection(ctx context.Context, quizID, sectionID string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireEditable(ctx, tx, quizID); err != nil {
			return err
		}
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		sections, err := loadSections(ctx, tx, quizID, len(slots))
		if err != nil {
			return err
		}
		sec, err := sectionByID(sections, sectionID)
		if err != nil {
			return err
		}
		if sec.FirstSlot == 1 {
			return ErrCannotRemoveFirstSection
		}
		if err := deleteSection(ctx, tx, sec.ID); err != nil {
			return err
		}
		return c.emit(ctx, tx, "section_removed", quizID, map[string]any{
			"section_id": sectionID,
		})
	})
}
