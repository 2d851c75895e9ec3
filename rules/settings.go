package rules

// Settings are the evaluated values passed to a capability implementation selected by the rules.
type Settings map[string]any

// With returns a copy of the settings with an additional value, the receiver is left unmodified.
func (s Settings) With(k string, v any) Settings {
	c := make(Settings, len(s)+1)

	for sk, sv := range s {
		c[sk] = sv
	}

	c[k] = v
	return c
}

func (s Settings) String(k string) (string, bool) {
	return get[string](s, k)
}

func (s Settings) Boolean(k string) (bool, bool) {
	return get[bool](s, k)
}

func (s Settings) Int(k string) (int, bool) {
	return get[int](s, k)
}

func (s Settings) Float(k string) (float64, bool) {
	return get[float64](s, k)
}

func get[T any](s Settings, k string) (T, bool) {
	v, ok := s[k].(T)
	return v, ok
}
