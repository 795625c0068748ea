package mcconsole

// compiledFilter is an include/exclude set of event types.
type compiledFilter struct {
	include map[EventType]struct{}
	exclude map[EventType]struct{}
}

// newCompiledFilter returns nil if both slices are empty (no filtering
// needed).
func newCompiledFilter(include, exclude []EventType) *compiledFilter {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}

	f := &compiledFilter{}
	if len(include) > 0 {
		f.include = typeSet(include)
	}
	if len(exclude) > 0 {
		f.exclude = typeSet(exclude)
	}
	return f
}

func typeSet(types []EventType) map[EventType]struct{} {
	m := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}

// Allows reports whether t passes the filter. A non-empty include list
// admits only its members; exclude always wins.
func (f *compiledFilter) Allows(t EventType) bool {
	if f == nil {
		return true
	}
	if len(f.include) > 0 {
		if _, ok := f.include[t]; !ok {
			return false
		}
	}
	if _, ok := f.exclude[t]; ok {
		return false
	}
	return true
}

func (f *compiledFilter) withInclude(types []EventType) *compiledFilter {
	if f == nil {
		f = &compiledFilter{}
	}
	f.include = typeSet(types)
	return f
}

func (f *compiledFilter) withExclude(types []EventType) *compiledFilter {
	if f == nil {
		f = &compiledFilter{}
	}
	f.exclude = typeSet(types)
	return f
}
