package main

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/256dpi/blescan/pkg/scan"
)

type device struct {
	result   scan.Result
	lastSeen time.Time
}

type state struct {
	devices map[string]*device
	order   []string
	logger  *logger
	mutex   sync.RWMutex
}

func newState() *state {
	return &state{
		devices: map[string]*device{},
		logger:  newLogger(50),
	}
}

func (s *state) register(result scan.Result) {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// update existing device
	key := result.Identity()
	if existing, ok := s.devices[key]; ok {
		existing.result = result
		existing.lastSeen = time.Now()
		return
	}

	// add device
	s.devices[key] = &device{
		result:   result,
		lastSeen: time.Now(),
	}
	s.order = append(s.order, key)

	// log discovery
	s.log("Discovered: %s (%s)", key, result.Source)
}

func (s *state) snapshot() []*device {
	// acquire mutex
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	// collect devices in discovery order
	return lo.Map(s.order, func(key string, _ int) *device {
		return s.devices[key]
	})
}

func (s *state) clear() {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// reset registry
	s.devices = map[string]*device{}
	s.order = nil
}

func (s *state) log(format string, args ...any) {
	s.logger.Append(format, args...)
}
