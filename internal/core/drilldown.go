package core

import "fmt"

// Level is the depth of the table currently displayed by the explorer.
type Level int

const (
	LevelRoot Level = iota
	LevelCategory
	LevelSubcategory
)

func (l Level) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelCategory:
		return "category"
	case LevelSubcategory:
		return "subcategory"
	default:
		return fmt.Sprintf("level-%d", int(l))
	}
}

// Panel is one table of the drill-down. Parent is empty for the root
// panel. Selected names the row the user picked in this panel, if any.
type Panel struct {
	Parent   string
	Level    Level
	Rows     []Row
	Selected string
	Total    Money
}

// Drill replays a selection path from the root. Every selected name must
// be a row of the panel above it. A selection without children is
// terminal and the remainder of the path is ignored.
func Drill(f *Forest, ageGroup string, path []string) ([]Panel, error) {
	rows, err := BuildTable(f.FindByLevel(0), ageGroup)
	if err != nil {
		return nil, err
	}
	panels := []Panel{{Level: LevelRoot, Rows: rows, Total: SumRows(rows)}}

	for _, name := range path {
		cur := &panels[len(panels)-1]
		if !containsRow(cur.Rows, name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSelection, name)
		}
		cur.Selected = name
		cat, err := f.FindByName(name)
		if err != nil {
			return nil, err
		}
		if !cat.HasChildren() {
			break
		}
		childRows, err := BuildTable(f.Children(cat), ageGroup)
		if err != nil {
			return nil, err
		}
		panels = append(panels, Panel{
			Parent: cat.Name,
			Level:  cur.Level + 1,
			Rows:   childRows,
			Total:  SumRows(childRows),
		})
	}
	return panels, nil
}

func containsRow(rows []Row, name string) bool {
	for _, r := range rows {
		if r.Name == name {
			return true
		}
	}
	return false
}
