package http

import (
	"net/http"

	"hhspend/internal/core"
	"hhspend/internal/log"
)

type ageBar struct {
	Label  string
	Amount string
	Width  int
	Href   string
}

// chartAgeGroups are the bars of the intro chart; Total is shown separately.
func chartAgeGroups() []string {
	return core.AgeGroups()[1:]
}

// handleIntro renders the landing page with the monthly household
// expenditure of every age group.
func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ErrorResponse(http.StatusNotFound, "Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ds := s.snapshot()
	totals, err := core.SpendingByAgeGroup(ds.forest, core.AgeGroups())
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}

	overall := totals[0]
	bars := totals[1:]
	var widest core.Money
	for _, t := range bars {
		if t.Amount.Cents > widest.Cents {
			widest = t.Amount
		}
	}

	data := struct {
		Title    string
		Active   string
		Overall  string
		Bars     []ageBar
		LoadedAt string
	}{
		Title:    "Household Expenditure in Singapore",
		Active:   "intro",
		Overall:  formatDollars(overall.Amount),
		LoadedAt: ds.loadedAt.Format("2 Jan 2006 15:04"),
	}
	for _, t := range bars {
		data.Bars = append(data.Bars, ageBar{
			Label:  t.AgeGroup,
			Amount: formatDollars(t.Amount),
			Width:  barWidth(t.Amount, widest),
			Href:   "/categories?" + drillQuery(t.AgeGroup, nil),
		})
	}

	s.render(w, r, "intro_page", data, nil)
}

type ageTotalJSON struct {
	AgeGroup    string `json:"age_group"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

// handleAgeTotalsAPI feeds the intro line chart.
func (s *Server) handleAgeTotalsAPI(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	totals, err := core.SpendingByAgeGroup(s.snapshot().forest, chartAgeGroups())
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	out := make([]ageTotalJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, ageTotalJSON{
			AgeGroup:    t.AgeGroup,
			AmountCents: t.Amount.Cents,
			Amount:      formatDollars(t.Amount),
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}
