// Package refdata provides the static enumerations listings are validated
// against: job types, work preferences, sectors, positions, experience levels
// and cities with their districts.
package refdata

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Kind string

const (
	JobType         Kind = "jobType"
	WorkPreference  Kind = "workPreference"
	Sector          Kind = "sector"
	Position        Kind = "position"
	ExperienceLevel Kind = "experienceLevel"
	City            Kind = "city"
)

type Option struct {
	ID    string `mapstructure:"id" json:"id"`
	Label string `mapstructure:"label" json:"label"`
}

type CityOption struct {
	ID        string   `mapstructure:"id" json:"id"`
	Label     string   `mapstructure:"label" json:"label"`
	Districts []string `mapstructure:"districts" json:"districts"`
}

type Catalog struct {
	JobTypes         []Option     `mapstructure:"job_types" json:"jobTypes"`
	WorkPreferences  []Option     `mapstructure:"work_preferences" json:"workPreferences"`
	Sectors          []Option     `mapstructure:"sectors" json:"sectors"`
	Positions        []Option     `mapstructure:"positions" json:"positions"`
	ExperienceLevels []Option     `mapstructure:"experience_levels" json:"experienceLevels"`
	Cities           []CityOption `mapstructure:"cities" json:"cities"`
}

// Provider answers lookups over a Catalog. It is immutable after construction
// and safe for concurrent use.
type Provider struct {
	catalog   Catalog
	labels    map[Kind]map[string]string
	districts map[string]map[string]bool
}

// Load reads the embedded catalog and, when path is set, overlays the
// sections present in that file.
func Load(path string) (*Provider, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultCatalog)); err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(c)
}

// Default returns the embedded catalog.
func Default() *Provider {
	p, err := Load("")
	if err != nil {
		panic(err)
	}
	return p
}

func New(c Catalog) (*Provider, error) {
	p := &Provider{
		catalog:   c,
		labels:    make(map[Kind]map[string]string),
		districts: make(map[string]map[string]bool),
	}

	sections := map[Kind][]Option{
		JobType:         c.JobTypes,
		WorkPreference:  c.WorkPreferences,
		Sector:          c.Sectors,
		Position:        c.Positions,
		ExperienceLevel: c.ExperienceLevels,
	}
	for kind, opts := range sections {
		if err := p.add(kind, opts); err != nil {
			return nil, err
		}
	}

	cities := make([]Option, len(c.Cities))
	for i, city := range c.Cities {
		cities[i] = Option{ID: city.ID, Label: city.Label}
		p.districts[city.ID] = make(map[string]bool, len(city.Districts))
		for _, d := range city.Districts {
			p.districts[city.ID][d] = true
		}
	}
	if err := p.add(City, cities); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) add(kind Kind, opts []Option) error {
	m := make(map[string]string, len(opts))
	for _, o := range opts {
		if o.ID == "" {
			return fmt.Errorf("%s: option with empty id", kind)
		}
		if _, dup := m[o.ID]; dup {
			return fmt.Errorf("%s: duplicate id %q", kind, o.ID)
		}
		m[o.ID] = o.Label
	}
	p.labels[kind] = m
	return nil
}

func (p *Provider) Catalog() Catalog {
	return p.catalog
}

func (p *Provider) Valid(kind Kind, id string) bool {
	_, ok := p.labels[kind][id]
	return ok
}

func (p *Provider) Label(kind Kind, id string) (string, bool) {
	l, ok := p.labels[kind][id]
	return l, ok
}

// ValidDistrict reports whether district belongs to the city. Cities without
// a district list accept any district.
func (p *Provider) ValidDistrict(cityID, district string) bool {
	ds, ok := p.districts[cityID]
	if !ok {
		return false
	}
	return len(ds) == 0 || ds[district]
}

func (p *Provider) IDs(kind Kind) []string {
	ids := make([]string, 0, len(p.labels[kind]))
	for id := range p.labels[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
