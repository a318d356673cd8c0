package migrator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
)

// Source enumerates the migrations available to the engine.
type Source interface {
	Migrations(ctx context.Context) ([]Migration, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Migration, error)

func (f SourceFunc) Migrations(ctx context.Context) ([]Migration, error) { return f(ctx) }

// Resolver turns a Source into a Catalog.
type Resolver struct {
	Source Source
}

// Resolve reads every migration from the source and returns them sorted by
// name, see compareNames. Each call builds a fresh catalog.
func (r *Resolver) Resolve(ctx context.Context) (Catalog, error) {
	if r.Source == nil {
		return Catalog{}, &CatalogError{Reason: "no migration source configured"}
	}

	migrations, err := r.Source.Migrations(ctx)
	if err != nil {
		return Catalog{}, &CatalogError{Reason: "failed to read migrations", Err: err}
	}

	sorted := slices.Clone(migrations)
	slices.SortStableFunc(sorted, func(a, b Migration) int { return compareNames(a.Name, b.Name) })

	for i, m := range sorted {
		if m.Name == "" {
			return Catalog{}, &CatalogError{Reason: "migration with empty name"}
		}
		if i > 0 && sorted[i-1].Name == m.Name {
			return Catalog{}, &CatalogError{Reason: fmt.Sprintf("duplicate migration name %q", m.Name)}
		}
	}

	return newCatalog(sorted), nil
}

// compareNames orders names by their leading integer when both have one, so
// 2_b sorts before 10_a. Names without a numeric prefix, and ties, compare
// lexically.
func compareNames(a, b string) int {
	na, nb := numericPrefix(a), numericPrefix(b)
	if na != "" && nb != "" {
		if c := cmp.Compare(len(na), len(nb)); c != 0 {
			return c
		}
		if c := strings.Compare(na, nb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// numericPrefix returns the leading digits of name without leading zeros.
// A name of only zeros yields "0".
func numericPrefix(name string) string {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return ""
	}
	digits := strings.TrimLeft(name[:end], "0")
	if digits == "" {
		return "0"
	}
	return digits
}
