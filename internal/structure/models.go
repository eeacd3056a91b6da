package structure

// Slot is one question placement within a quiz. The ordinal is the 1-based
// position in presentation order; ordinals of a quiz are always dense (1..N).
type Slot struct {
	ID               string  `json:"id"`
	QuizID           string  `json:"quiz_id"`
	Ordinal          int     `json:"ordinal"`
	Page             int     `json:"page"`
	QuestionRef      string  `json:"question_ref"`
	MaxMark          float64 `json:"max_mark"`
	RequiresPrevious bool    `json:"requires_previous"`

	// SectionID is derived from the section index on read; it is never stored
	// on the slot row.
	SectionID string `json:"section_id,omitempty"`
}

// Section is a named contiguous range of slots. FirstSlot is stored;
// LastSlot is derived from the next section (or the final ordinal).
type Section struct {
	ID        string `json:"id"`
	QuizID    string `json:"quiz_id"`
	FirstSlot int    `json:"first_slot"`
	LastSlot  int    `json:"last_slot"`
	Heading   string `json:"heading"`
	Shuffle   bool   `json:"shuffle"`
}

// PageView is the equivalence class of contiguous slots sharing a page number.
// Pages are derived from slot rows, never stored as their own entities.
type PageView struct {
	Number int    `json:"number"`
	Slots  []Slot `json:"slots"`
}

// PageMeta is one row of the per-page side table. The side table always holds
// exactly the pages realized by at least one slot.
type PageMeta struct {
	QuizID  string `json:"quiz_id"`
	Page    int    `json:"page"`
	AuxData string `json:"aux_data"`
}

// SlotNumber is a display number for one slot. Zero-weighted (information)
// questions are labelled InformationLabel instead of a number.
type SlotNumber struct {
	SlotID string `json:"slot_id"`
	Label  string `json:"label"`
}

// InformationLabel marks non-gradable information slots in display numbering.
const InformationLabel = "i"

type PageBreakOp int

const (
	// PageBreakLink removes the page break before a slot, merging its page
	// into the previous one.
	PageBreakLink PageBreakOp = iota + 1
	// PageBreakUnlink inserts a page break immediately before a slot.
	PageBreakUnlink
)

// markTolerance is the float-noise threshold under which a max-mark update is
// treated as a no-op.
const markTolerance = 1e-7
