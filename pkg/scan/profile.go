package scan

import (
	"os"
	"time"

	"github.com/ryanuber/go-glob"
	"gopkg.in/yaml.v3"
)

// A Filter selects discovered devices by name pattern and advertised service.
// An empty field matches everything; a device must match all set fields.
type Filter struct {
	Name    string `yaml:"name"`
	Service string `yaml:"service"`
}

// Matches returns whether the provided result matches the filter.
func (f Filter) Matches(result Result) bool {
	// match name against glob pattern
	if f.Name != "" && !glob.Glob(f.Name, result.Name) {
		return false
	}

	// match advertised services
	if f.Service != "" {
		found := false
		for _, service := range result.Services {
			if service == f.Service {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Match returns whether the provided result matches any of the filters. An
// empty filter list matches all results.
func Match(filters []Filter, result Result) bool {
	// match all if no filters
	if len(filters) == 0 {
		return true
	}

	// check filters
	for _, filter := range filters {
		if filter.Matches(result) {
			return true
		}
	}

	return false
}

// Settings configure the delivery behaviour of a scan session.
type Settings struct {
	// Buffer is the capacity of the delivery channel. A full channel blocks
	// the scanner's callback until the consumer catches up.
	Buffer int `yaml:"buffer"`

	// Interval and Window configure the duty cycle of scanners that support
	// periodic scanning. Scanners without duty cycle support ignore them.
	Interval time.Duration `yaml:"interval"`
	Window   time.Duration `yaml:"window"`
}

// Validate will set defaults for missing settings.
func (s *Settings) Validate() {
	if s.Buffer <= 0 {
		s.Buffer = 16
	}
}

// A Profile represents a reusable scan configuration.
type Profile struct {
	Filters  []Filter `yaml:"filters"`
	Settings Settings `yaml:"settings"`
	Broker   string   `yaml:"broker"`
	Service  string   `yaml:"service"`
}

// ReadProfile will attempt to read the profile file at the specified path.
func ReadProfile(path string) (*Profile, error) {
	// prepare profile
	var profile Profile

	// read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// decode data
	err = yaml.Unmarshal(data, &profile)
	if err != nil {
		return nil, err
	}

	// ensure defaults
	profile.Settings.Validate()

	return &profile, nil
}

// Save will write the profile file to the specified path.
func (p *Profile) Save(path string) error {
	// encode data
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	// write file
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return err
	}

	return nil
}
