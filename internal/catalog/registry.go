package catalog

import "sort"

// Registry is the canonical axis ordering. Every vector in the system is laid out
// in Registry order, so it is built once per operation and passed down explicitly.
type Registry struct {
	names []string
	index map[string]int
}

// NewRegistry orders axes by SortOrder, keeping input order for equal values.
// Duplicate names keep their first occurrence.
func NewRegistry(axes []Axis) *Registry {
	sorted := append([]Axis(nil), axes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	r := &Registry{index: make(map[string]int, len(sorted))}
	for _, a := range sorted {
		if _, dup := r.index[a.Name]; dup {
			continue
		}
		r.index[a.Name] = len(r.names)
		r.names = append(r.names, a.Name)
	}
	return r
}

func (r *Registry) Len() int { return len(r.names) }

// Names returns a copy of the ordered axis names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Name returns the axis at position i.
func (r *Registry) Name(i int) string { return r.names[i] }

// Index returns the position of the named axis.
func (r *Registry) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Map keys a Registry-ordered vector by axis name.
func (r *Registry) Map(v []float64) map[string]float64 {
	out := make(map[string]float64, len(r.names))
	for i, name := range r.names {
		if i < len(v) {
			out[name] = v[i]
		}
	}
	return out
}
