package http

import (
	"net/http"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
)

type cardView struct {
	ID           string    `json:"id"`
	ListID       string    `json:"listId"`
	AmountCents  int64     `json:"amountCents"`
	Amount       string    `json:"amount"`
	OccurredAt   time.Time `json:"occurredAt"`
	IsProjection bool      `json:"isProjection"`
}

type listView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	RealizedCents  int64      `json:"realizedCents"`
	ProjectedCents int64      `json:"projectedCents"`
	Total          string     `json:"total"`
	Cards          []cardView `json:"cards"`
}

type boardView struct {
	Degraded bool       `json:"degraded"`
	Order    []string   `json:"order"`
	Lists    []listView `json:"lists"`
}

func buildBoardView(snap core.Snapshot, degraded bool) boardView {
	view := boardView{
		Degraded: degraded,
		Order:    snap.BoardOrder,
		Lists:    make([]listView, 0, len(snap.BoardOrder)),
	}
	for _, listID := range snap.BoardOrder {
		l, ok := snap.FindList(listID)
		if !ok {
			continue
		}
		lv := listView{ID: l.ID, Title: l.Title, Cards: []cardView{}}
		for _, c := range snap.CardsInList(l.ID) {
			lv.Cards = append(lv.Cards, cardView{
				ID:           c.ID,
				ListID:       c.ListID,
				AmountCents:  c.Amount.Cents,
				Amount:       core.FormatCents(c.Amount.Cents),
				OccurredAt:   c.OccurredAt,
				IsProjection: c.IsProjection,
			})
			if c.IsProjection {
				lv.ProjectedCents += c.Amount.Cents
			} else {
				lv.RealizedCents += c.Amount.Cents
			}
		}
		lv.Total = core.FormatCents(lv.RealizedCents + lv.ProjectedCents)
		view.Lists = append(view.Lists, lv)
	}
	return view
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	view := buildBoardView(s.board.Snapshot(), s.board.Degraded())
	s.writeJSON(w, http.StatusOK, view)
}

type createListRequest struct {
	Title string `json:"title"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.board.AddList(r.Context(), req.Title)
	s.writeResult(w, r, http.StatusCreated, idResponse{ID: id}, err)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	err := s.board.RemoveList(r.Context(), r.PathValue("id"))
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

type setOrderRequest struct {
	Order []string `json:"order"`
}

func (s *Server) handleSetBoardOrder(w http.ResponseWriter, r *http.Request) {
	var req setOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.board.SetBoardOrder(r.Context(), req.Order)
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

type createCardRequest struct {
	ListID       string    `json:"listId"`
	Amount       string    `json:"amount"`
	AmountCents  *int64    `json:"amountCents"`
	OccurredAt   time.Time `json:"occurredAt"`
	IsProjection bool      `json:"isProjection"`
}

// resolveCents accepts either a localized amount string ("1.234,56") or raw
// cents, preferring the string when both are present.
func resolveCents(amount string, cents *int64) (int64, error) {
	if amount != "" {
		return core.ParseAmountToCents(amount)
	}
	if cents != nil {
		return *cents, nil
	}
	return 0, core.ErrInvalidAmount
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	cents, err := resolveCents(req.Amount, req.AmountCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.board.AddCard(r.Context(), req.ListID, cents, req.OccurredAt, req.IsProjection)
	s.writeResult(w, r, http.StatusCreated, idResponse{ID: id}, err)
}

type editCardRequest struct {
	Amount      *string    `json:"amount"`
	AmountCents *int64     `json:"amountCents"`
	OccurredAt  *time.Time `json:"occurredAt"`
}

func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	var req editCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	cents := req.AmountCents
	if req.Amount != nil {
		parsed, err := core.ParseAmountToCents(*req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		cents = &parsed
	}
	err := s.board.EditCard(r.Context(), r.PathValue("id"), cents, req.OccurredAt)
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	err := s.board.RemoveCard(r.Context(), r.PathValue("id"))
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleToggleProjection(w http.ResponseWriter, r *http.Request) {
	err := s.board.ToggleProjection(r.Context(), r.PathValue("id"))
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

type transferRequest struct {
	Amount       string    `json:"amount"`
	AmountCents  *int64    `json:"amountCents"`
	TargetListID string    `json:"targetListId"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	cents, err := resolveCents(req.Amount, req.AmountCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.board.Transfer(r.Context(), r.PathValue("id"), cents, req.TargetListID, req.OccurredAt)
	s.writeResult(w, r, http.StatusCreated, idResponse{ID: id}, err)
}

type installmentsRequest struct {
	ListID     string `json:"listId"`
	Total      string `json:"total"`
	TotalCents *int64 `json:"totalCents"`
	Start      string `json:"start"`
	End        string `json:"end"`
	DayOfMonth int    `json:"dayOfMonth"`
}

type installmentsResponse struct {
	IDs []string `json:"ids"`
}

func parseMonth(value string) (core.Month, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return core.Month{}, core.ErrInvalidMonthRange
	}
	return core.Month{Year: t.Year(), Month: int(t.Month())}, nil
}

func (s *Server) handleCreateInstallments(w http.ResponseWriter, r *http.Request) {
	var req installmentsRequest
	if !s.decode(w, r, &req) {
		return
	}
	cents, err := resolveCents(req.Total, req.TotalCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	start, err := parseMonth(req.Start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	end, err := parseMonth(req.End)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ids, err := s.board.AddInstallments(r.Context(), req.ListID, cents, start, end, req.DayOfMonth)
	s.writeResult(w, r, http.StatusCreated, installmentsResponse{IDs: ids}, err)
}
