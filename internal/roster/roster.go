package roster

import (
	"fmt"
	"sort"
	"strings"

	"rostercal/internal/model"
)

// Roster is the parsed form of one uploaded roster: the normalized grid and
// its date header. It is built once per upload and never modified, so a
// single Roster can serve any number of employees, concurrently.
type Roster struct {
	grid   model.Grid
	header []HeaderDate
	policy Policy
}

// Employee is one roster row aligned to the date header.
type Employee struct {
	Name string
	// Row is the index of the row in the normalized grid.
	Row int
	// Tokens holds one cell per header date, in header order.
	Tokens []string
}

// New normalizes raw with p and parses the date header.
func New(raw model.Grid, p Policy) (*Roster, error) {
	p.Normalize()

	grid, err := Normalize(raw, p)
	if err != nil {
		return nil, err
	}
	header, err := ParseDateHeader(grid)
	if err != nil {
		return nil, err
	}
	return &Roster{grid: grid, header: header, policy: p}, nil
}

// Grid returns a copy of the normalized grid.
func (r *Roster) Grid() model.Grid {
	out := make(model.Grid, len(r.grid))
	for i, row := range r.grid {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Header returns a copy of the date header.
func (r *Roster) Header() []HeaderDate {
	return append([]HeaderDate(nil), r.header...)
}

// Policy returns the policy the roster was normalized with.
func (r *Roster) Policy() Policy {
	return r.policy
}

// Window returns the first and last header dates. These are positional,
// not min/max: the header is not required to be ascending.
func (r *Roster) Window() model.Window {
	return model.Window{
		First: r.header[0].Date,
		Last:  r.header[len(r.header)-1].Date,
	}
}

// Label returns the first cell of the label row, if any.
func (r *Roster) Label() string {
	return strings.TrimSpace(r.grid.Cell(0, 0))
}

// Employee returns the first employee row whose name cell equals name.
// The comparison is exact and case-sensitive.
func (r *Roster) Employee(name string) (Employee, error) {
	for i := 2; i < len(r.grid); i++ {
		if r.grid[i][0] == name {
			return r.employeeAt(i), nil
		}
	}
	return Employee{}, fmt.Errorf("%w: %q", ErrEmployeeNotFound, name)
}

// Employees returns every named employee row. Later duplicates of a name
// are left out, matching what Employee returns for that name.
func (r *Roster) Employees() []Employee {
	seen := make(map[string]bool)
	out := make([]Employee, 0, len(r.grid))
	for i := 2; i < len(r.grid); i++ {
		name := r.grid[i][0]
		if strings.TrimSpace(name) == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, r.employeeAt(i))
	}
	return out
}

// Names returns the sorted, de-duplicated, non-empty employee names.
func (r *Roster) Names() []string {
	emps := r.Employees()
	names := make([]string, 0, len(emps))
	for _, e := range emps {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Roster) employeeAt(row int) Employee {
	cells := r.grid[row]
	tokens := make([]string, len(r.header))
	for i, h := range r.header {
		if h.Column < len(cells) {
			tokens[i] = cells[h.Column]
		}
	}
	return Employee{Name: cells[0], Row: row, Tokens: tokens}
}
