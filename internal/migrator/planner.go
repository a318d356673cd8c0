package migrator

import "fmt"

// DownDefault decides what Down targets when called without a selection.
type DownDefault int

const (
	// DownLast reverts only the most recently executed migration.
	DownLast DownDefault = iota
	// DownAll reverts every executed migration.
	DownAll
)

// Planner computes the ordered list of migrations an Up or Down call runs.
// All validation happens here, before anything executes.
type Planner struct {
	DownDefault DownDefault
}

// Plan resolves sel against the catalog and the executed log for the given
// direction. Migrations are returned in the order they should run: catalog
// order for up, most recently executed first for down.
func (p *Planner) Plan(catalog Catalog, executed []string, sel Selection, dir Direction) ([]Migration, error) {
	candidates := candidateNames(catalog, executed, dir)

	var names []string
	switch sel.Kind {
	case SelectNone:
		names = candidates
		if dir == Down && p.DownDefault == DownLast && len(names) > 1 {
			names = names[:1]
		}

	case SelectAll:
		names = candidates

	case SelectSteps:
		names = candidates[:max(0, min(sel.Steps, len(candidates)))]

	case SelectSingle, SelectMany:
		if err := validateNamed(catalog, candidates, sel.Names, dir); err != nil {
			return nil, err
		}
		names = filterCandidates(candidates, sel.Names)

	case SelectUpTo:
		if len(sel.Names) != 1 {
			return nil, fmt.Errorf("bound selection needs exactly one name, got %d", len(sel.Names))
		}
		bound := sel.Names[0]
		if err := validateNamed(catalog, candidates, sel.Names, dir); err != nil {
			return nil, err
		}
		for i, name := range candidates {
			if name == bound {
				names = candidates[:i+1]
				break
			}
		}

	default:
		return nil, fmt.Errorf("unknown selection kind %s", sel.Kind)
	}

	return toMigrations(catalog, names)
}

// candidateNames lists names eligible to run in dir: pending names in catalog
// order for up, executed names most recent first for down.
func candidateNames(catalog Catalog, executed []string, dir Direction) []string {
	done := make(map[string]struct{}, len(executed))
	for _, name := range executed {
		done[name] = struct{}{}
	}

	if dir == Up {
		pending := make([]string, 0, catalog.Len())
		for _, name := range catalog.Names() {
			if _, ok := done[name]; !ok {
				pending = append(pending, name)
			}
		}
		return pending
	}

	reverted := make([]string, 0, len(executed))
	seen := make(map[string]struct{}, len(executed))
	for i := len(executed) - 1; i >= 0; i-- {
		if _, ok := seen[executed[i]]; ok {
			continue
		}
		seen[executed[i]] = struct{}{}
		reverted = append(reverted, executed[i])
	}
	return reverted
}

// validateNamed checks every name exists in the catalog before checking that
// each one is a candidate, so a missing name always wins over an ineligible
// one.
func validateNamed(catalog Catalog, candidates, names []string, dir Direction) error {
	for _, name := range names {
		if _, ok := catalog.Lookup(name); !ok {
			return &NotFoundError{Name: name}
		}
	}

	eligible := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		eligible[name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := eligible[name]; !ok {
			return &NotPendingError{Name: name, Direction: dir}
		}
	}

	return nil
}

// filterCandidates keeps the candidates named in names, in candidate order.
// Repeated names collapse to one.
func filterCandidates(candidates, names []string) []string {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	out := make([]string, 0, len(wanted))
	for _, name := range candidates {
		if _, ok := wanted[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func toMigrations(catalog Catalog, names []string) ([]Migration, error) {
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		m, ok := catalog.Lookup(name)
		if !ok {
			// only reachable for executed names missing from the catalog
			return nil, &NotFoundError{Name: name}
		}
		out = append(out, m)
	}
	return out, nil
}
