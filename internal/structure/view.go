package structure

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Structure is a consistent read snapshot of one quiz's slot order, page
// grouping and section grouping, taken in a single transaction.
type Structure struct {
	QuizID   string     `json:"quiz_id"`
	Slots    []Slot     `json:"slots"`
	Sections []Section  `json:"sections"`
	Pages    []PageView `json:"pages"`
}

// Structure assembles the unified view the editing UI renders from.
func (c *Coordinator) Structure(ctx context.Context, quizID string) (*Structure, error) {
	var snap *Structure
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		snap, err = loadStructure(ctx, tx, quizID)
		return err
	})
	return snap, err
}

func loadStructure(ctx context.Context, tx DBTX, quizID string) (*Structure, error) {
	slots, err := loadSlots(ctx, tx, quizID)
	if err != nil {
		return nil, err
	}
	sections, err := loadSections(ctx, tx, quizID, len(slots))
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if sec, ok := sectionOf(sections, slots[i].Ordinal); ok {
			slots[i].SectionID = sec.ID
		}
	}
	return &Structure{
		QuizID:   quizID,
		Slots:    slots,
		Sections: sections,
		Pages:    derivePages(slots),
	}, nil
}

func (s *Structure) SlotCount() int { return len(s.Slots) }

func (s *Structure) SlotAt(ordinal int) (Slot, error) {
	return slotByOrdinal(s.Slots, ordinal)
}

func (s *Structure) SectionsInOrder() []Section { return s.Sections }

func (s *Structure) SlotsInSection(sectionID string) ([]Slot, error) {
	sec, err := sectionByID(s.Sections, sectionID)
	if err != nil {
		return nil, err
	}
	var out []Slot
	for _, sl := range s.Slots {
		if sl.Ordinal >= sec.FirstSlot && sl.Ordinal <= sec.LastSlot {
			out = append(out, sl)
		}
	}
	return out, nil
}

func (s *Structure) IsFirstOnPage(ordinal int) bool {
	sl, err := slotByOrdinal(s.Slots, ordinal)
	if err != nil {
		return false
	}
	if ordinal == 1 {
		return true
	}
	prev, err := slotByOrdinal(s.Slots, ordinal-1)
	if err != nil {
		return false
	}
	return prev.Page != sl.Page
}

func (s *Structure) IsLastOnPage(ordinal int) bool {
	sl, err := slotByOrdinal(s.Slots, ordinal)
	if err != nil {
		return false
	}
	if ordinal == len(s.Slots) {
		return true
	}
	next, err := slotByOrdinal(s.Slots, ordinal+1)
	if err != nil {
		return false
	}
	return next.Page != sl.Page
}

func (s *Structure) IsLastInSection(ordinal int) bool {
	sec, ok := sectionOf(s.Sections, ordinal)
	return ok && sec.LastSlot == ordinal
}

func (s *Structure) IsLastInAssessment(ordinal int) bool {
	return len(s.Slots) > 0 && ordinal == len(s.Slots)
}

// NumberSlots assigns display numbers: sequential integers from 1, with
// zero-weighted information questions labelled InformationLabel instead of
// consuming a number.
func (c *Coordinator) NumberSlots(ctx context.Context, quizID string) ([]SlotNumber, error) {
	var out []SlotNumber
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		slots, err := loadSlots(ctx, tx, quizID)
		if err != nil {
			return err
		}
		n := 0
		for _, s := range slots {
			info, err := c.questions.IsZeroWeight(ctx, tx, s.QuestionRef)
			if err != nil {
				return fmt.Errorf("numbering slot %d: %w", s.Ordinal, err)
			}
			if info {
				out = append(out, SlotNumber{SlotID: s.ID, Label: InformationLabel})
				continue
			}
			n++
			out = append(out, SlotNumber{SlotID: s.ID, Label: strconv.Itoa(n)})
		}
		return nil
	})
	return out, err
}
