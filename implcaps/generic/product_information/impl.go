package product_information

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/da/capabilities"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/tda/implcaps"
	"sync"
)

// fields lists the enumeration keys understood, and how each is applied to the product information.
var fields = map[string]func(*capabilities.ProductInfo, string){
	"Name":         func(pi *capabilities.ProductInfo, v string) { pi.Name = v },
	"Manufacturer": func(pi *capabilities.ProductInfo, v string) { pi.Manufacturer = v },
	"Version":      func(pi *capabilities.ProductInfo, v string) { pi.Version = v },
	"Serial":       func(pi *capabilities.ProductInfo, v string) { pi.Serial = v },
}

type Implementation struct {
	s  persistence.Section
	m  *sync.RWMutex
	pi *capabilities.ProductInfo
}

func NewProductInformation() *Implementation {
	return &Implementation{m: &sync.RWMutex{}}
}

func (i *Implementation) ImplName() string {
	return "GenericProductInformation"
}

func (i *Implementation) Init(_ da.Device, section persistence.Section) {
	i.s = section
}

func (i *Implementation) Load(_ context.Context) (bool, error) {
	i.m.Lock()
	defer i.m.Unlock()

	pi := &capabilities.ProductInfo{}
	found := false

	for k, apply := range fields {
		if v, ok := i.s.String(k); ok {
			apply(pi, v)
			found = true
		}
	}

	if found {
		i.pi = pi
	}

	return found, nil
}

func (i *Implementation) Capability() da.Capability {
	return capabilities.ProductInformationFlag
}

func (i *Implementation) Name() string {
	return capabilities.StandardNames[capabilities.ProductInformationFlag]
}

func (i *Implementation) Enumerate(_ context.Context, m map[string]any) (bool, error) {
	i.m.Lock()
	defer i.m.Unlock()

	pi := &capabilities.ProductInfo{}
	values := map[string]string{}

	for k, v := range m {
		apply, known := fields[k]
		if !known {
			continue
		}

		s, ok := v.(string)
		if !ok {
			return i.pi != nil, fmt.Errorf("failed to cast '%s' value to string", k)
		}

		if len(s) > 0 {
			apply(pi, s)
			values[k] = s
		}
	}

	if len(values) == 0 {
		return false, nil
	}

	for k := range fields {
		if v, found := values[k]; found {
			i.s.Set(k, v)
		} else {
			i.s.Delete(k)
		}
	}

	i.pi = pi
	return true, nil
}

func (i *Implementation) Detach(_ context.Context, _ implcaps.DetachType) error {
	return nil
}

func (i *Implementation) Get(_ context.Context) (capabilities.ProductInfo, error) {
	i.m.RLock()
	defer i.m.RUnlock()

	if i.pi == nil {
		return capabilities.ProductInfo{}, nil
	}

	return *i.pi, nil
}

var _ capabilities.ProductInformation = (*Implementation)(nil)
var _ implcaps.TDACapability = (*Implementation)(nil)
var _ da.BasicCapability = (*Implementation)(nil)
