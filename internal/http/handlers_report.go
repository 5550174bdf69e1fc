package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/report"
)

type listTotalView struct {
	ListID         string `json:"listId"`
	Title          string `json:"title"`
	RealizedCents  int64  `json:"realizedCents"`
	Realized       string `json:"realized"`
	ProjectedCents int64  `json:"projectedCents"`
	Projected      string `json:"projected"`
}

type monthOverviewView struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	RealizedCents  int64           `json:"realizedCents"`
	Realized       string          `json:"realized"`
	ProjectedCents int64           `json:"projectedCents"`
	Projected      string          `json:"projected"`
	ByList         []listTotalView `json:"byList"`
}

func buildOverviewView(o report.MonthOverview) monthOverviewView {
	view := monthOverviewView{
		Year:           o.Year,
		Month:          o.Month,
		RealizedCents:  o.RealizedCents,
		Realized:       core.FormatCents(o.RealizedCents),
		ProjectedCents: o.ProjectedCents,
		Projected:      core.FormatCents(o.ProjectedCents),
		ByList:         make([]listTotalView, 0, len(o.ByList)),
	}
	for _, lt := range o.ByList {
		view.ByList = append(view.ByList, listTotalView{
			ListID:         lt.ListID,
			Title:          lt.Title,
			RealizedCents:  lt.RealizedCents,
			Realized:       core.FormatCents(lt.RealizedCents),
			ProjectedCents: lt.ProjectedCents,
			Projected:      core.FormatCents(lt.ProjectedCents),
		})
	}
	return view
}

// parseYearMonth reads year and month query parameters, defaulting to the
// current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	return year, month
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "report mirror not configured"})
		return
	}
	year, month := parseYearMonth(r)
	key := fmt.Sprintf("%04d-%02d", year, month)

	if cached, ok := s.overviewCache.Get(key); ok {
		s.writeJSON(w, http.StatusOK, buildOverviewView(cached))
		return
	}

	overview, err := s.reports.MonthOverview(r.Context(), year, month)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.overviewCache.Set(key, overview)
	s.writeJSON(w, http.StatusOK, buildOverviewView(overview))
}
