package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	device := Result{
		Address:  "aa:bb:cc:dd:ee:ff",
		Name:     "sensor-42",
		Services: []string{"180d"},
	}

	assert.True(t, Filter{}.Matches(device))
	assert.True(t, Filter{Name: "sensor-*"}.Matches(device))
	assert.False(t, Filter{Name: "beacon-*"}.Matches(device))
	assert.True(t, Filter{Service: "180d"}.Matches(device))
	assert.False(t, Filter{Service: "180f"}.Matches(device))
	assert.True(t, Filter{Name: "sensor-*", Service: "180d"}.Matches(device))
	assert.False(t, Filter{Name: "sensor-*", Service: "180f"}.Matches(device))
}

func TestMatch(t *testing.T) {
	device := Result{Name: "sensor-42"}

	// an empty filter list matches everything
	assert.True(t, Match(nil, device))

	assert.True(t, Match([]Filter{{Name: "beacon-*"}, {Name: "sensor-*"}}, device))
	assert.False(t, Match([]Filter{{Name: "beacon-*"}}, device))
}

func TestSettingsValidate(t *testing.T) {
	var settings Settings
	settings.Validate()
	assert.Equal(t, 16, settings.Buffer)

	settings = Settings{Buffer: 4}
	settings.Validate()
	assert.Equal(t, 4, settings.Buffer)
}

func TestProfileReadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")

	profile := &Profile{
		Filters: []Filter{
			{Name: "sensor-*", Service: "180d"},
		},
		Settings: Settings{
			Buffer:   8,
			Interval: 5 * time.Second,
			Window:   time.Second,
		},
		Broker:  "mqtt://localhost",
		Service: "_blescan._tcp",
	}

	err := profile.Save(path)
	assert.NoError(t, err)

	profile2, err := ReadProfile(path)
	assert.NoError(t, err)
	assert.Equal(t, profile, profile2)

	// missing files are reported
	_, err = ReadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))

	// defaults are applied
	err = os.WriteFile(path, []byte("filters: []\n"), 0644)
	assert.NoError(t, err)

	profile3, err := ReadProfile(path)
	assert.NoError(t, err)
	assert.Equal(t, 16, profile3.Settings.Buffer)
}
