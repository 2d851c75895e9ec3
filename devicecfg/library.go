package devicecfg

import (
	"embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
)

//go:embed devices/*.yaml
var Embedded embed.FS

// Library holds device configurations, indexed by the product ids they match.
type Library struct {
	m        *sync.RWMutex
	products map[string]*Device
}

func NewLibrary() *Library {
	return &Library{
		m:        &sync.RWMutex{},
		products: map[string]*Device{},
	}
}

// Parse reads and validates a single device configuration.
func Parse(r io.Reader) (*Device, error) {
	d := &Device{}

	if err := yaml.NewDecoder(r).Decode(d); err != nil {
		return nil, fmt.Errorf("decoding device config: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Add registers a device configuration against all of its products, a product already present is replaced.
func (l *Library) Add(d *Device) {
	l.m.Lock()
	defer l.m.Unlock()

	for _, p := range d.Products {
		l.products[p.ID] = d
	}
}

func (l *Library) LoadReader(r io.Reader) error {
	d, err := Parse(r)
	if err != nil {
		return err
	}

	l.Add(d)
	return nil
}

// LoadFS loads every YAML file found within the file system.
func (l *Library) LoadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if de.IsDir() {
			return nil
		}

		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := l.LoadReader(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		return nil
	})
}

// Lookup returns the device configuration matching a product id.
func (l *Library) Lookup(productID string) (*Device, bool) {
	l.m.RLock()
	defer l.m.RUnlock()

	d, found := l.products[productID]
	return d, found
}
