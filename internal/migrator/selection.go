package migrator

import "fmt"

// SelectionKind tells which variant a Selection holds.
type SelectionKind int

const (
	// SelectNone targets the default set: every pending migration for up,
	// the most recent one (or all, see DownDefault) for down.
	SelectNone SelectionKind = iota
	// SelectAll targets every candidate.
	SelectAll
	// SelectSingle targets exactly one named migration.
	SelectSingle
	// SelectMany targets a list of named migrations.
	SelectMany
	// SelectUpTo targets candidates up to and including a named migration.
	SelectUpTo
	// SelectSteps targets the first N candidates.
	SelectSteps
)

func (k SelectionKind) String() string {
	switch k {
	case SelectNone:
		return "none"
	case SelectAll:
		return "all"
	case SelectSingle:
		return "single"
	case SelectMany:
		return "many"
	case SelectUpTo:
		return "up-to"
	case SelectSteps:
		return "steps"
	}
	return fmt.Sprintf("SelectionKind(%d)", int(k))
}

// Selection describes which migrations an Up or Down call targets. The zero
// value is SelectNone.
type Selection struct {
	Kind  SelectionKind
	Names []string
	Steps int
}

// Only selects a single migration by name.
func Only(name string) Selection {
	return Selection{Kind: SelectSingle, Names: []string{name}}
}

// List selects the named migrations.
func List(names ...string) Selection {
	return Selection{Kind: SelectMany, Names: names}
}

// To selects every candidate up to and including name.
func To(name string) Selection {
	return Selection{Kind: SelectUpTo, Names: []string{name}}
}

// AllMigrations selects every candidate.
func AllMigrations() Selection {
	return Selection{Kind: SelectAll}
}

// StepCount selects the first n candidates.
func StepCount(n int) Selection {
	return Selection{Kind: SelectSteps, Steps: n}
}

// SelectionFromArgs builds a selection from command line style input: no
// names and no bound selects the default, one name selects it alone, several
// select the list, and a bound selects everything up to it. Names and a bound
// together are rejected.
func SelectionFromArgs(names []string, to string) (Selection, error) {
	switch {
	case to != "" && len(names) > 0:
		return Selection{}, fmt.Errorf("cannot combine migration names with a bound (%q)", to)
	case to != "":
		return To(to), nil
	case len(names) == 1:
		return Only(names[0]), nil
	case len(names) > 1:
		return List(names...), nil
	}
	return Selection{}, nil
}

func (s Selection) String() string {
	switch s.Kind {
	case SelectSingle, SelectMany, SelectUpTo:
		return fmt.Sprintf("%s%v", s.Kind, s.Names)
	case SelectSteps:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Steps)
	}
	return s.Kind.String()
}
