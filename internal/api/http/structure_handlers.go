package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizsmith/quizsmith/internal/structure"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GET /quizzes/{quizID}/structure
func GetStructureHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := c.Structure(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, snap)
	}
}

// GET /quizzes/{quizID}/numbering
func NumberSlotsHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nums, err := c.NumberSlots(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nums)
	}
}

// POST /quizzes/{quizID}/slots  { "question_ref": "...", "page": 0 }
func AppendSlotHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionRef string `json:"question_ref"`
			Page        int    `json:"page"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuestionRef == "" {
			http.Error(w, "question_ref required", http.StatusBadRequest)
			return
		}
		slot, err := c.AppendSlot(r.Context(), chi.URLParam(r, "quizID"), req.QuestionRef, req.Page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, slot)
	}
}

// POST /quizzes/{quizID}/slots/{slotID}/move  { "after_id": "", "page": 2 }
// An empty after_id moves the slot to the very top.
func MoveSlotHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AfterID string `json:"after_id"`
			Page    int    `json:"page"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		err := c.MoveSlot(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "slotID"), req.AfterID, req.Page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// DELETE /quizzes/{quizID}/slots/{ordinal}
func RemoveSlotHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ordinal, err := strconv.Atoi(chi.URLParam(r, "ordinal"))
		if err != nil {
			http.Error(w, "bad ordinal", http.StatusBadRequest)
			return
		}
		if err := c.RemoveSlot(r.Context(), chi.URLParam(r, "quizID"), ordinal); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// POST /quizzes/{quizID}/slots/{slotID}/pagebreak  { "op": "link"|"unlink" }
func PageBreakHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Op string `json:"op"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var op structure.PageBreakOp
		switch req.Op {
		case "link":
			op = structure.PageBreakLink
		case "unlink":
			op = structure.PageBreakUnlink
		default:
			http.Error(w, "op must be link or unlink", http.StatusBadRequest)
			return
		}
		err := c.UpdatePageBreak(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "slotID"), op)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// PATCH /quizzes/{quizID}/slots/{slotID}/maxmark  { "max_mark": 2.5 }
func MaxMarkHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MaxMark float64 `json:"max_mark"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.MaxMark < 0 {
			http.Error(w, "max_mark must be >= 0", http.StatusBadRequest)
			return
		}
		changed, err := c.UpdateSlotMaxMark(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "slotID"), req.MaxMark)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"changed": changed})
	}
}

// PATCH /quizzes/{quizID}/slots/{slotID}/dependency  { "requires_previous": true }
func DependencyHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RequiresPrevious bool `json:"requires_previous"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		err := c.UpdateQuestionDependency(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "slotID"), req.RequiresPrevious)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// POST /quizzes/{quizID}/sections  { "page": 2, "heading": "Part B" }
func AddSectionHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page    int    `json:"page"`
			Heading string `json:"heading"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sec, err := c.AddSectionHeading(r.Context(), chi.URLParam(r, "quizID"), req.Page, req.Heading)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, sec)
	}
}

// PATCH /quizzes/{quizID}/sections/{sectionID}  { "heading": "...", "shuffle": true }
// Absent fields are left untouched.
func UpdateSectionHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Heading *string `json:"heading"`
			Shuffle *bool   `json:"shuffle"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		quizID := chi.URLParam(r, "quizID")
		sectionID := chi.URLParam(r, "sectionID")
		if req.Heading != nil {
			if err := c.RenameSection(r.Context(), quizID, sectionID, *req.Heading); err != nil {
				writeError(w, err)
				return
			}
		}
		if req.Shuffle != nil {
			if err := c.SetSectionShuffle(r.Context(), quizID, sectionID, *req.Shuffle); err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// DELETE /quizzes/{quizID}/sections/{sectionID}
func RemoveSectionHandler(c *structure.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := c.RemoveSection(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "sectionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
