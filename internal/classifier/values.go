package classifier

// Values maps field names to deduplicated candidates. Fields keep the order
// in which they first received a candidate and candidates keep first-seen
// order, so iteration never depends on map ordering.
type Values struct {
	fields []string
	values map[string][]string
	seen   map[string]map[string]struct{}
}

// NewValues returns an empty mapping.
func NewValues() *Values {
	return &Values{
		values: make(map[string][]string),
		seen:   make(map[string]map[string]struct{}),
	}
}

// Add appends value to field unless the exact string is already present.
func (v *Values) Add(field, value string) {
	seen, ok := v.seen[field]
	if !ok {
		seen = make(map[string]struct{})
		v.seen[field] = seen
		v.fields = append(v.fields, field)
	}
	if _, dup := seen[value]; dup {
		return
	}
	seen[value] = struct{}{}
	v.values[field] = append(v.values[field], value)
}

// Get returns the candidates of field, or nil when the field had no match.
func (v *Values) Get(field string) []string {
	if v == nil {
		return nil
	}
	return v.values[field]
}

// Has reports whether field has at least one candidate.
func (v *Values) Has(field string) bool {
	return len(v.Get(field)) > 0
}

// Fields returns the populated field names in first-populated order.
func (v *Values) Fields() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.fields))
	copy(out, v.fields)
	return out
}

// Len returns the number of populated fields.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.fields)
}

// All returns every candidate of every field, field by field.
func (v *Values) All() []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, f := range v.fields {
		out = append(out, v.values[f]...)
	}
	return out
}
