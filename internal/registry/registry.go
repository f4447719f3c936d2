package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"
)

// Record is everything the session knows about one library name.
//
// Either side may be empty: a name can be known only as a header, only as
// a compiled body, or as both.
type Record struct {
	Name       string   `json:"name" yaml:"name"`
	HeaderPath string   `json:"header_path,omitempty" yaml:"header_path,omitempty"`
	BinaryPath string   `json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
	HeaderDeps []string `json:"header_deps,omitempty" yaml:"header_deps,omitempty"`
	BinaryDeps []string `json:"binary_deps,omitempty" yaml:"binary_deps,omitempty"`

	// Revision counts registrations of this name, starting at 1.
	Revision int `json:"revision" yaml:"revision"`
}

// HasHeader reports whether a header has been registered under this name.
func (r Record) HasHeader() bool { return r.HeaderPath != "" }

// HasBinary reports whether a compiled body has been registered under this name.
func (r Record) HasBinary() bool { return r.BinaryPath != "" }

// Deps returns header_deps ∪ binary_deps, sorted.
func (r Record) Deps() []string {
	return unionSorted(r.HeaderDeps, r.BinaryDeps)
}

// Registry maps library names to records.
type Registry struct {
	records map[string]*Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Normalize returns the canonical form of a library name: trimmed and NFC
// normalized, so visually identical names typed differently collapse.
func Normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// RegisterHeader records name's header path and header dependencies,
// keeping any binary fields already present. Redefinition overwrites the
// header fields; nothing linked against the previous header is rebuilt.
func (r *Registry) RegisterHeader(name, headerPath string, deps []string) (Record, error) {
	rec, err := r.upsert(name, headerPath)
	if err != nil {
		return Record{}, err
	}
	if rec.HasHeader() {
		slog.Warn("header redefined", "name", rec.Name, "old_path", rec.HeaderPath, "new_path", headerPath)
	}
	rec.HeaderPath = headerPath
	rec.HeaderDeps = normalizeSet(deps)
	return rec.clone(), nil
}

// RegisterBinary records name's compiled body and its dependencies,
// keeping any header fields already present.
func (r *Registry) RegisterBinary(name, binaryPath string, deps []string) (Record, error) {
	rec, err := r.upsert(name, binaryPath)
	if err != nil {
		return Record{}, err
	}
	if rec.HasBinary() {
		slog.Warn("library redefined", "name", rec.Name, "old_path", rec.BinaryPath, "new_path", binaryPath)
	}
	rec.BinaryPath = binaryPath
	rec.BinaryDeps = normalizeSet(deps)
	return rec.clone(), nil
}

func (r *Registry) upsert(name, path string) (*Record, error) {
	key := Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("library name is empty")
	}
	if path == "" {
		return nil, fmt.Errorf("library %q: artifact path is empty", key)
	}
	rec, ok := r.records[key]
	if !ok {
		rec = &Record{Name: key}
		r.records[key] = rec
	}
	rec.Revision++
	return rec, nil
}

// Lookup returns a copy of the record for name.
func (r *Registry) Lookup(name string) (Record, bool) {
	rec, ok := r.records[Normalize(name)]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// HeaderPath returns the registered header path for name, if any.
func (r *Registry) HeaderPath(name string) (string, bool) {
	rec, ok := r.records[Normalize(name)]
	if !ok || !rec.HasHeader() {
		return "", false
	}
	return rec.HeaderPath, true
}

// Len returns the number of known names.
func (r *Registry) Len() int {
	return len(r.records)
}

// Names returns every known name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns copies of every record, sorted by name.
func (r *Registry) Records() []Record {
	out := make([]Record, 0, len(r.records))
	for _, name := range r.Names() {
		out = append(out, r.records[name].clone())
	}
	return out
}

// Match returns the records whose names match a glob pattern such as
// "net*" or "{foo,bar}". An empty pattern matches everything.
func (r *Registry) Match(pattern string) ([]Record, error) {
	if pattern == "" {
		return r.Records(), nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid library pattern %q: %w", pattern, err)
	}
	var out []Record
	for _, name := range r.Names() {
		if g.Match(name) {
			out = append(out, r.records[name].clone())
		}
	}
	return out, nil
}

func (rec *Record) clone() Record {
	c := *rec
	c.HeaderDeps = append([]string(nil), rec.HeaderDeps...)
	c.BinaryDeps = append([]string(nil), rec.BinaryDeps...)
	return c
}

// normalizeSet normalizes, deduplicates and sorts names. Empty names are dropped.
func normalizeSet(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = Normalize(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func unionSorted(a, b []string) []string {
	all := make([]string, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return normalizeSet(all)
}
