package http

import (
	"net/http"
	"strconv"
	"strings"

	"hhspend/internal/core"
	"hhspend/internal/log"
)

type rowView struct {
	Name        string
	Amount      string
	Width       int
	HasChildren bool
	Selected    bool
	// Partial and page URLs opening this row
	Href    string
	PushURL string
}

// panelView is one table of the drill-down. Child is the panel opened by the
// selected row, rendered nested inside this one.
type panelView struct {
	Title      string
	Level      string
	Total      string
	HasDelta   bool
	Delta      string
	DeltaClass string
	Rows       []rowView
	Child      *panelView
}

type ageOption struct {
	Label    string
	Selected bool
}

type explorerView struct {
	Title      string
	Active     string
	Age        string
	RootHref   string
	AgeGroups  []ageOption
	Breadcrumb []string
	Root       *panelView
}

// drill returns the panels for path, served from the cache when the same
// selection was rendered against the same dataset.
func (s *Server) drill(ds *dataset, ageGroup string, path []string) ([]core.Panel, error) {
	key := strconv.FormatInt(ds.loadedAt.UnixNano(), 36) + "|" + ageGroup + "|" + strings.Join(path, "\x1f")
	if panels, ok := s.panelCache.Get(key); ok {
		return panels, nil
	}
	panels, err := core.Drill(ds.forest, ageGroup, path)
	if err != nil {
		return nil, err
	}
	s.panelCache.Set(key, panels)
	return panels, nil
}

// panelViews links the panels into a nested view. Each row links to the
// selection path that opens it.
func (s *Server) panelViews(ageGroup string, panels []core.Panel) *panelView {
	var root, parent *panelView
	var prefix []string
	for _, p := range panels {
		v := &panelView{
			Title: panelTitle(p.Parent),
			Level: p.Level.String(),
			Total: formatDollars(p.Total),
		}
		if delta, ok := s.deltas.Observe("panel_total:"+p.Level.String(), p.Total); ok {
			v.HasDelta = true
			v.Delta = formatDelta(delta)
			v.DeltaClass = deltaClass(delta)
		}

		widest := maxAmount(p.Rows)
		for _, row := range p.Rows {
			rv := rowView{
				Name:        row.Name,
				Amount:      formatDollars(row.Amount),
				Width:       barWidth(row.Amount, widest),
				HasChildren: row.HasChildren,
				Selected:    row.Name == p.Selected,
			}
			if row.HasChildren {
				next := make([]string, len(prefix), len(prefix)+1)
				copy(next, prefix)
				q := drillQuery(ageGroup, append(next, row.Name))
				rv.Href = "/ui/categories?" + q
				rv.PushURL = "/categories?" + q
			}
			v.Rows = append(v.Rows, rv)
		}

		if root == nil {
			root = v
		} else {
			parent.Child = v
		}
		parent = v
		if p.Selected != "" {
			prefix = append(prefix, p.Selected)
		}
	}
	return root
}

func selectedPath(panels []core.Panel) []string {
	var path []string
	for _, p := range panels {
		if p.Selected != "" {
			path = append(path, p.Selected)
		}
	}
	return path
}

func ageOptions(selected string) []ageOption {
	groups := core.AgeGroups()
	opts := make([]ageOption, 0, len(groups))
	for _, g := range groups {
		opts = append(opts, ageOption{Label: g, Selected: g == selected})
	}
	return opts
}

// handleCategories renders the explorer page. A path in the query opens the
// same panels the partial would, so drill-downs can be linked.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	age, err := ParseAgeGroup(r.URL.Query())
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentExplorer, log.OpDrill)
		return
	}
	path := ParseDrillPath(r.URL.Query())

	panels, err := s.drill(s.snapshot(), age, path)
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentExplorer, log.OpDrill)
		return
	}

	s.render(w, r, "categories_page", explorerView{
		Title:      "Household Expenditure by Category",
		Active:     "categories",
		Age:        age,
		RootHref:   "/ui/categories?" + drillQuery(age, nil),
		AgeGroups:  ageOptions(age),
		Breadcrumb: selectedPath(panels),
		Root:       s.panelViews(age, panels),
	}, nil)
}

// handleCategoryPanels returns the drill-down partial. Every request replays
// the path from the root.
func (s *Server) handleCategoryPanels(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	age, err := ParseAgeGroup(r.URL.Query())
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentExplorer, log.OpDrill)
		return
	}
	path := ParseDrillPath(r.URL.Query())

	panels, err := s.drill(s.snapshot(), age, path)
	if err != nil {
		writeHTMLError(w, r, err, log.ComponentExplorer, log.OpDrill)
		return
	}

	deepest := panels[len(panels)-1].Level
	s.metrics.drills.WithLabelValues(deepest.String()).Inc()
	log.NewStructuredLogger(log.FromContext(r.Context())).LogDrill(r.Context(), age, path, len(panels))

	s.render(w, r, "category_panels", explorerView{
		Age:        age,
		RootHref:   "/ui/categories?" + drillQuery(age, nil),
		Breadcrumb: selectedPath(panels),
		Root:       s.panelViews(age, panels),
	}, NewHTMXResponse().TriggerDrillChanged(age, int(deepest)))
}

type categoryRowJSON struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	HasChildren bool   `json:"has_children"`
}

type categoryTableJSON struct {
	AgeGroup   string            `json:"age_group"`
	Parent     string            `json:"parent,omitempty"`
	Root       string            `json:"root,omitempty"`
	Path       []string          `json:"path,omitempty"`
	Title      string            `json:"title"`
	TotalCents int64             `json:"total_cents"`
	Rows       []categoryRowJSON `json:"rows"`
}

// handleCategoriesAPI returns the table for the root categories, or for the
// children of ?parent= together with the parent's top-level category and
// its path from there.
func (s *Server) handleCategoriesAPI(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	age, err := ParseAgeGroup(r.URL.Query())
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	forest := s.snapshot().forest

	categories := forest.FindByLevel(0)
	parent := sanitizeInput(r.URL.Query().Get("parent"))
	var root string
	var lineage []string
	if parent != "" {
		cat, err := forest.FindByName(parent)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}
		categories = forest.Children(cat)
		root = forest.TopLevelAncestor(cat).Name
		lineage = forest.Lineage(cat)
	}

	rows, err := core.BuildTable(categories, age)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	out := categoryTableJSON{
		AgeGroup:   age,
		Parent:     parent,
		Root:       root,
		Path:       lineage,
		Title:      panelTitle(parent),
		TotalCents: core.SumRows(rows).Cents,
		Rows:       make([]categoryRowJSON, 0, len(rows)),
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, categoryRowJSON{
			Name:        row.Name,
			AmountCents: row.Amount.Cents,
			Amount:      formatDollars(row.Amount),
			HasChildren: row.HasChildren,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}
