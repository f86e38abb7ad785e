package dataset

import "github.com/rotisserie/eris"

// Registry maps dataset names to their implementations.
type Registry struct {
	datasets map[string]Dataset
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all nine datasets.
func NewRegistry() *Registry {
	r := &Registry{
		datasets: make(map[string]Dataset),
	}

	r.Register(&AggTransaction{})
	r.Register(&AggUser{})
	r.Register(&AggInsurance{})

	r.Register(&MapTransaction{})
	r.Register(&MapUser{})
	r.Register(&MapInsurance{})

	r.Register(&TopTransaction{})
	r.Register(&TopUser{})
	r.Register(&TopInsurance{})

	return r
}

// Register adds a dataset to the registry.
func (r *Registry) Register(d Dataset) {
	name := d.Name()
	r.datasets[name] = d
	r.order = append(r.order, name)
}

// Get returns a dataset by name.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return nil, eris.Errorf("dataset: unknown dataset %q", name)
	}
	return d, nil
}

// Select returns datasets matching the given criteria.
// If granularity is non-nil, only datasets in that family are returned.
// If names is non-empty, only those named datasets are returned.
func (r *Registry) Select(granularity *Granularity, names []string) ([]Dataset, error) {
	if len(names) > 0 {
		var result []Dataset
		for _, name := range names {
			d, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			if granularity != nil && d.Granularity() != *granularity {
				continue
			}
			result = append(result, d)
		}
		return result, nil
	}

	if granularity != nil {
		return r.ByGranularity(*granularity), nil
	}

	return r.All(), nil
}

// ByGranularity returns all datasets in the given family, in registration order.
func (r *Registry) ByGranularity(granularity Granularity) []Dataset {
	var result []Dataset
	for _, name := range r.order {
		if r.datasets[name].Granularity() == granularity {
			result = append(result, r.datasets[name])
		}
	}
	return result
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.datasets[name])
	}
	return result
}

// AllNames returns all registered dataset names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
