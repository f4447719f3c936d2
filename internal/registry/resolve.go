package registry

import "sort"

// ResolveLinkSet returns the transitive closure of direct over header and
// binary dependency edges. Every member appears exactly once; a name is
// never expanded twice, so cyclic dependencies terminate.
//
// The result is sorted by name for reproducible link commands. Callers
// must not rely on the order for correctness.
//
// The closure is computed fresh on every call; the registry may have grown
// since the last one.
func (r *Registry) ResolveLinkSet(direct []string) ([]string, error) {
	type pending struct {
		name     string
		referrer string
	}

	seen := make(map[string]struct{}, len(direct))
	work := make([]pending, 0, len(direct))
	for _, name := range direct {
		name = Normalize(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		work = append(work, pending{name: name})
	}

	closure := make([]string, 0, len(work))
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		rec, ok := r.records[p.name]
		if !ok {
			return nil, &UnknownLibraryError{Name: p.name, Referrer: p.referrer}
		}
		closure = append(closure, p.name)

		for _, dep := range rec.Deps() {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			work = append(work, pending{name: dep, referrer: p.name})
		}
	}

	sort.Strings(closure)
	return closure, nil
}

// BinaryPaths maps a resolved link set to the object paths the linker
// needs. Header-only records contribute nothing.
func (r *Registry) BinaryPaths(linkSet []string) []string {
	paths := make([]string, 0, len(linkSet))
	for _, name := range linkSet {
		if rec, ok := r.records[Normalize(name)]; ok && rec.HasBinary() {
			paths = append(paths, rec.BinaryPath)
		}
	}
	return paths
}
