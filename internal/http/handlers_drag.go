package http

import (
	"net/http"

	"github.com/LorenzoCW/dnd-investments/internal/dnd"
)

type dragStartRequest struct {
	Kind         string `json:"kind"`
	ID           string `json:"id"`
	OriginListID string `json:"originListId"`
}

type dragOverRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type dragEffectResponse struct {
	Effect string   `json:"effect"`
	Order  []string `json:"order,omitempty"`
	CardID string   `json:"cardId,omitempty"`
	ListID string   `json:"listId,omitempty"`
}

func parseItemKind(s string) (dnd.ItemKind, bool) {
	switch s {
	case "list":
		return dnd.KindList, true
	case "card":
		return dnd.KindCard, true
	}
	return 0, false
}

func effectName(t dnd.EffectType) string {
	switch t {
	case dnd.EffectPreviewListOrder:
		return "preview-list-order"
	case dnd.EffectPreviewCardOrder:
		return "preview-card-order"
	case dnd.EffectReassignCard:
		return "reassign-card"
	case dnd.EffectCommitListOrder:
		return "commit-list-order"
	}
	return "none"
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, ok := parseItemKind(req.Kind)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "kind must be \"list\" or \"card\""})
		return
	}
	s.board.DragStart(kind, req.ID, req.OriginListID)
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDragOver(w http.ResponseWriter, r *http.Request) {
	var req dragOverRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, ok := parseItemKind(req.Kind)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "kind must be \"list\" or \"card\""})
		return
	}
	effect, err := s.board.DragOver(r.Context(), dnd.Target{Kind: kind, ID: req.ID})
	resp := dragEffectResponse{
		Effect: effectName(effect.Type),
		Order:  effect.Order,
		CardID: effect.CardID,
		ListID: effect.ListID,
	}
	if effect.Type == dnd.EffectReassignCard {
		resp.ListID = effect.TargetListID
	}
	s.writeResult(w, r, http.StatusOK, resp, err)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	err := s.board.DragEnd(r.Context())
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	s.board.DragCancel()
	s.writeJSON(w, http.StatusNoContent, nil)
}
