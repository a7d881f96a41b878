// Package schema describes the tables the warehouse exposes to the question pipeline.
package schema

import "sort"

const (
	AirlinesTable = "airlines"
	BookingsTable = "bookings"
)

type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Info is an ordered list of tables. It is built once per load and treated as read-only.
type Info struct {
	Tables []Table `json:"tables"`
}

// Columns returns the column list of the named table, or nil when the table is unknown.
func (i Info) Columns(table string) []string {
	for _, t := range i.Tables {
		if t.Name == table {
			return append([]string(nil), t.Columns...)
		}
	}
	return nil
}

// Identifiers returns every table and column name, deduplicated and sorted by byte order.
func (i Info) Identifiers() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, t := range i.Tables {
		add(t.Name)
		for _, column := range t.Columns {
			add(column)
		}
	}
	sort.Strings(out)
	return out
}

func (i Info) Empty() bool {
	return len(i.Tables) == 0
}
