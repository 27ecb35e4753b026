package http

import (
	"log/slog"
	"net/http"

	"hhspend/internal/core"
	"hhspend/internal/log"
)

type selectorOption struct {
	Value    string
	Selected bool
}

type estimatorView struct {
	Title         string
	Active        string
	AgeGroups     []ageOption
	HouseholdSize []selectorOption
	Income        []selectorOption
	Dwelling      []selectorOption
}

type estimateRowView struct {
	Name   string
	Amount string
	Width  int
}

type estimateView struct {
	AgeGroup   string
	Base       string
	Factor     string
	Total      string
	HasDelta   bool
	Delta      string
	DeltaClass string
	Rows       []estimateRowView
}

// selectorOptions lists a multiplier table for a form select. The first
// entry is preselected when nothing matches.
func selectorOptions(factors []core.Factor, selected string) []selectorOption {
	opts := make([]selectorOption, 0, len(factors))
	found := false
	for _, f := range factors {
		sel := f.Selector == selected
		found = found || sel
		opts = append(opts, selectorOption{Value: f.Selector, Selected: sel})
	}
	if !found && len(opts) > 0 {
		opts[0].Selected = true
	}
	return opts
}

// handleEstimator renders the personal expenditure estimator form.
func (s *Server) handleEstimator(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	in, err := ParseEstimateInput(r.URL.Query())
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentEstimator, log.OpEstimate)
		return
	}
	m := s.snapshot().multipliers

	s.render(w, r, "estimator_page", estimatorView{
		Title:         "Personal Expenditure Estimator",
		Active:        "estimator",
		AgeGroups:     ageOptions(in.AgeGroup),
		HouseholdSize: selectorOptions(m.Table(core.KindHouseholdSize), in.HouseholdSize),
		Income:        selectorOptions(m.Table(core.KindIncome), in.Income),
		Dwelling:      selectorOptions(m.Table(core.KindDwelling), in.Dwelling),
	}, nil)
}

// handleEstimate returns the estimate partial with the change since the
// previous estimate.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	in, err := ParseEstimateInput(r.URL.Query())
	if err != nil {
		s.metrics.estimates.WithLabelValues("rejected").Inc()
		writeHTMLError(w, r, err, log.ComponentEstimator, log.OpEstimate)
		return
	}

	ds := s.snapshot()
	est, err := core.EstimateSpending(ds.forest, in, ds.multipliers)
	if err != nil {
		s.metrics.estimates.WithLabelValues("rejected").Inc()
		writeHTMLError(w, r, err, log.ComponentEstimator, log.OpEstimate)
		return
	}
	s.metrics.estimates.WithLabelValues("ok").Inc()

	view := estimateView{
		AgeGroup: est.Input.AgeGroup,
		Base:     formatDollars(est.Base),
		Factor:   est.Factor.StringFixed(3),
		Total:    formatDollars(est.Total),
	}
	if delta, ok := s.deltas.Observe("estimate_total", est.Total); ok {
		view.HasDelta = true
		view.Delta = formatDelta(delta)
		view.DeltaClass = deltaClass(delta)
	}
	widest := maxAmount(est.ByCategory)
	for _, row := range est.ByCategory {
		view.Rows = append(view.Rows, estimateRowView{
			Name:   row.Name,
			Amount: formatDollars(row.Amount),
			Width:  barWidth(row.Amount, widest),
		})
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Estimate computed",
		log.FieldComponent, log.ComponentEstimator,
		log.FieldOperation, log.OpEstimate,
		log.FieldAgeGroup, in.AgeGroup,
		log.FieldAmountCents, est.Total.Cents,
		slog.String("factor", est.Factor.String()))

	s.render(w, r, "estimate_result", view, NewHTMXResponse().TriggerEstimateUpdated(est.Total.Cents))
}
