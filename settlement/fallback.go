package settlement

// Step is one named link of an ordered fallback chain. Resolve returns the
// value and whether this step produced one.
type Step[T any] struct {
	Name    string
	Resolve func() (T, bool)
}

// FirstOf walks the steps in order and returns the first resolved value
// together with the name of the step that produced it. ok is false when no
// step resolved.
func FirstOf[T any](steps ...Step[T]) (value T, step string, ok bool) {
	for _, s := range steps {
		if v, resolved := s.Resolve(); resolved {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

