package schema

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------
// Sorting Algorithm (fixed point over pending tables)
// ---------------------------------------------------------------------

// Plan is the table insertion order of one migration run. Every table comes
// after the tables it references, self references aside.
type Plan struct {
	Tables []*Table
}

func (p *Plan) Names() []string {
	names := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		names[i] = t.Name
	}
	return names
}

func (p *Plan) Len() int {
	return len(p.Tables)
}

// Index returns the position of the named table, -1 if absent.
func (p *Plan) Index(name string) int {
	for i, t := range p.Tables {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Filter keeps the order but drops tables not in include (when include is
// non-empty) and tables in exclude. Matching ignores case.
func (p *Plan) Filter(include, exclude []string) *Plan {
	if len(include) == 0 && len(exclude) == 0 {
		return p
	}
	toSet := func(names []string) map[string]bool {
		m := make(map[string]bool, len(names))
		for _, n := range names {
			m[strings.ToLower(n)] = true
		}
		return m
	}
	inc, exc := toSet(include), toSet(exclude)

	out := &Plan{}
	for _, t := range p.Tables {
		key := strings.ToLower(t.Name)
		if len(inc) > 0 && !inc[key] {
			continue
		}
		if exc[key] {
			continue
		}
		out.Tables = append(out.Tables, t)
	}
	return out
}

// Resolve orders the tables of s so that referenced tables come first.
//
// Pending tables are scanned repeatedly; a table is resolved once every table
// it references is resolved. A scan that resolves nothing means the rest are
// blocked by a cycle, reported as *CycleError. A reference to a table outside
// the schema is reported as *DanglingReferenceError before any scan.
func Resolve(s *Schema) (*Plan, error) {
	tables := s.Tables()

	for _, t := range tables {
		for _, dep := range t.Dependencies() {
			if s.Table(dep) == nil {
				return nil, &DanglingReferenceError{Table: t.Name, RefTable: dep}
			}
		}
	}

	var sorted []*Table
	processed := make(map[string]bool)

	// Every productive scan resolves at least one table, so len(tables)
	// scans are enough for any acyclic schema.
	for scan := 0; len(sorted) < len(tables) && scan < len(tables); scan++ {
		added := false

		for _, t := range tables {
			if processed[t.Name] {
				continue
			}

			allDepsProcessed := true
			for _, depName := range t.Dependencies() {
				if !processed[depName] {
					allDepsProcessed = false
					break
				}
			}

			if allDepsProcessed {
				sorted = append(sorted, t)
				processed[t.Name] = true
				added = true
			}
		}

		if !added {
			break
		}
	}

	if len(sorted) < len(tables) {
		var pending []*Table
		for _, t := range tables {
			if !processed[t.Name] {
				pending = append(pending, t)
			}
		}
		return nil, &CycleError{Tables: cycleMembers(s, pending)}
	}

	return &Plan{Tables: sorted}, nil
}

// cycleMembers returns the pending tables that can reach themselves through
// pending references. Tables that only depend on a cycle are left out.
func cycleMembers(s *Schema, pending []*Table) []string {
	isPending := make(map[string]bool, len(pending))
	for _, t := range pending {
		isPending[t.Name] = true
	}

	var members []string
	for _, start := range pending {
		visited := make(map[string]bool)
		queue := append([]string(nil), start.Dependencies()...)
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			if name == start.Name {
				members = append(members, start.Name)
				break
			}
			if visited[name] || !isPending[name] {
				continue
			}
			visited[name] = true
			queue = append(queue, s.Table(name).Dependencies()...)
		}
	}
	sort.Strings(members)
	return members
}
