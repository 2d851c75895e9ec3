package devicecfg

import (
	"errors"
	"fmt"
	"github.com/shimmeringbee/tda/datapoint"
	"strconv"
)

var ErrInvalidConfig = errors.New("invalid device config")

type Product struct {
	ID           string `yaml:"id"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
}

type Mapping struct {
	Raw   any `yaml:"dps_val"`
	Value any `yaml:"value"`
}

type DataPoint struct {
	ID       int       `yaml:"id"`
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Readonly bool      `yaml:"readonly"`
	Mapping  []Mapping `yaml:"mapping"`
}

func (d DataPoint) Config() datapoint.Config {
	c := datapoint.Config{
		ID:       strconv.Itoa(d.ID),
		Name:     d.Name,
		Type:     d.Type,
		Readonly: d.Readonly,
	}

	for _, m := range d.Mapping {
		c.Mapping = append(c.Mapping, datapoint.Mapping{Raw: m.Raw, Value: m.Value})
	}

	return c
}

type Entity struct {
	Entity     string      `yaml:"entity"`
	Name       string      `yaml:"name"`
	DataPoints []DataPoint `yaml:"dps"`
}

// Bind creates a binding for every data point of the entity against the device, keyed by the logical role name.
func (e Entity) Bind(d *datapoint.Device) map[string]datapoint.DataPoint {
	dps := make(map[string]datapoint.DataPoint, len(e.DataPoints))

	for _, dp := range e.DataPoints {
		dps[dp.Name] = datapoint.New(d, dp.Config())
	}

	return dps
}

// Values returns the logical values of each data point's mapping, keyed by role name.
func (e Entity) Values() map[string][]any {
	values := make(map[string][]any, len(e.DataPoints))

	for _, dp := range e.DataPoints {
		var v []any

		for _, m := range dp.Mapping {
			v = append(v, m.Value)
		}

		values[dp.Name] = v
	}

	return values
}

type Device struct {
	Name              string    `yaml:"name"`
	Products          []Product `yaml:"products"`
	PrimaryEntity     Entity    `yaml:"primary_entity"`
	SecondaryEntities []Entity  `yaml:"secondary_entities"`
}

func (d Device) Entities() []Entity {
	return append([]Entity{d.PrimaryEntity}, d.SecondaryEntities...)
}

func (d Device) Product(id string) (Product, bool) {
	for _, p := range d.Products {
		if p.ID == id {
			return p, true
		}
	}

	return Product{}, false
}

func (d Device) Validate() error {
	if len(d.Name) == 0 {
		return fmt.Errorf("%w: device has no name", ErrInvalidConfig)
	}

	if len(d.Products) == 0 {
		return fmt.Errorf("%w: %s: no products", ErrInvalidConfig, d.Name)
	}

	for _, p := range d.Products {
		if len(p.ID) == 0 {
			return fmt.Errorf("%w: %s: product with empty id", ErrInvalidConfig, d.Name)
		}
	}

	for _, e := range d.Entities() {
		if err := e.validate(); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, d.Name, err.Error())
		}
	}

	return nil
}

func (e Entity) validate() error {
	if len(e.Entity) == 0 {
		return errors.New("entity has no type")
	}

	ids := map[int]bool{}
	names := map[string]bool{}

	for _, dp := range e.DataPoints {
		if dp.ID <= 0 {
			return fmt.Errorf("%s: data point %q has invalid id %d", e.Entity, dp.Name, dp.ID)
		}

		if len(dp.Name) == 0 {
			return fmt.Errorf("%s: data point %d has no name", e.Entity, dp.ID)
		}

		if ids[dp.ID] {
			return fmt.Errorf("%s: duplicate data point id %d", e.Entity, dp.ID)
		}

		if names[dp.Name] {
			return fmt.Errorf("%s: duplicate data point name %q", e.Entity, dp.Name)
		}

		ids[dp.ID] = true
		names[dp.Name] = true
	}

	return nil
}
