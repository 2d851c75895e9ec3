package rules

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func compiledDefaults(t *testing.T) *Engine {
	e := New()

	err := e.LoadFS(Embedded)
	assert.NoError(t, err)

	err = e.CompileRules()
	assert.NoError(t, err)

	return e
}

func TestDefault(t *testing.T) {
	t.Run("default rules can be loaded and pass compilation", func(t *testing.T) {
		compiledDefaults(t)
	})

	t.Run("a lawn mower with only baseline activities gets the baseline implementation", func(t *testing.T) {
		e := compiledDefaults(t)

		o, err := e.Execute(Input{
			Product: InputProduct{ID: "abc", Name: "Mower", Manufacturer: "Generic"},
			Entity: InputEntity{
				Type:       "lawn_mower",
				DataPoints: []string{"activity", "command"},
				Values: map[string][]any{
					"activity": {"mowing", "docked"},
					"command":  {"start_mowing"},
				},
			},
		})
		assert.NoError(t, err)

		assert.Equal(t, []string{"GenericProductInformation", "TuyaLawnMower"}, o.Implementations())
		assert.Equal(t, "activity", o.Capabilities["TuyaLawnMower"]["ActivityRole"])
		assert.Equal(t, "Mower", o.Capabilities["GenericProductInformation"]["Name"])
	})

	t.Run("a lawn mower reporting vendor activities gets the extended implementation", func(t *testing.T) {
		e := compiledDefaults(t)

		o, err := e.Execute(Input{
			Product: InputProduct{ID: "abc"},
			Entity: InputEntity{
				Type:       "lawn_mower",
				DataPoints: []string{"activity"},
				Values: map[string][]any{
					"activity": {"mowing", "charging"},
				},
			},
		})
		assert.NoError(t, err)

		assert.Equal(t, []string{"GenericProductInformation", "TuyaExtendedLawnMower"}, o.Implementations())
		assert.Equal(t, "command", o.Capabilities["TuyaExtendedLawnMower"]["CommandRole"])
	})

	t.Run("a lawn mower without an activity data point gets the baseline implementation", func(t *testing.T) {
		e := compiledDefaults(t)

		o, err := e.Execute(Input{
			Product: InputProduct{ID: "abc"},
			Entity: InputEntity{
				Type:       "lawn_mower",
				DataPoints: []string{"command"},
				Values:     map[string][]any{"command": {"dock"}},
			},
		})
		assert.NoError(t, err)

		assert.Contains(t, o.Capabilities, "TuyaLawnMower")
		assert.NotContains(t, o.Capabilities, "TuyaExtendedLawnMower")
	})

	t.Run("other entities do not get a lawn mower implementation", func(t *testing.T) {
		e := compiledDefaults(t)

		o, err := e.Execute(Input{
			Product: InputProduct{ID: "abc"},
			Entity:  InputEntity{Type: "sensor", Values: map[string][]any{}},
		})
		assert.NoError(t, err)

		assert.Equal(t, []string{"GenericProductInformation"}, o.Implementations())
	})
}
