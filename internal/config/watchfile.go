package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/dine-alert/internal/dining"
)

// WatchFile models a watches.yml submitted in one process run. It is
// input, not state; nothing is persisted across restarts.
type WatchFile struct {
	Watches []WatchSpec `yaml:"watches"`
}

type WatchSpec struct {
	Restaurant string `yaml:"restaurant"`
	Date       string `yaml:"date"` // YYYY-MM-DD
	Meal       string `yaml:"meal"` // breakfast|lunch|dinner
	PartySize  int    `yaml:"party_size"`
	Notify     string `yaml:"notify"` // opaque delivery target
}

// LoadWatchFile reads and validates a watch file.
func LoadWatchFile(path string) (*WatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return WatchFileFromYAML(data)
}

// WatchFileFromYAML parses and validates watch entries from raw YAML.
func WatchFileFromYAML(data []byte) (*WatchFile, error) {
	var wf WatchFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("invalid watch file yaml: %w", err)
	}
	if len(wf.Watches) == 0 {
		return nil, fmt.Errorf("watch file has no watches")
	}
	for i, w := range wf.Watches {
		if w.Restaurant == "" {
			return nil, fmt.Errorf("watch %d: restaurant is required", i)
		}
		if w.Date == "" {
			return nil, fmt.Errorf("watch %d: date is required", i)
		}
		if w.Meal == "" {
			return nil, fmt.Errorf("watch %d: meal is required", i)
		}
		if w.PartySize < 1 {
			return nil, fmt.Errorf("watch %d: party_size must be >= 1", i)
		}
	}
	return &wf, nil
}

// Query converts a watch entry into a reservation query.
func (w WatchSpec) Query() (dining.ReservationQuery, error) {
	date, err := dining.ParseDate(w.Date)
	if err != nil {
		return dining.ReservationQuery{}, err
	}
	meal, err := dining.ParseMealPeriod(w.Meal)
	if err != nil {
		return dining.ReservationQuery{}, err
	}
	return dining.ReservationQuery{
		EntityID:  w.Restaurant,
		Date:      date,
		Meal:      meal,
		PartySize: w.PartySize,
	}, nil
}
