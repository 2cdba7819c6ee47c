// Package mdns adapts mDNS service discovery to the scan.Scanner interface.
package mdns

import (
	"context"
	"errors"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/256dpi/blescan/pkg/scan"
)

// DefaultService is the service type browsed if none is configured.
const DefaultService = "_blescan._tcp"

// Scanner discovers devices that advertise themselves via mDNS. It implements
// the scan.Scanner interface.
type Scanner struct {
	service string
	cancel  context.CancelFunc
	mutex   sync.Mutex
}

// NewScanner creates a new scanner browsing the specified service type.
func NewScanner(service string) *Scanner {
	// ensure service
	if service == "" {
		service = DefaultService
	}

	return &Scanner{
		service: service,
	}
}

// Start implements the scan.Scanner interface.
func (s *Scanner) Start(filters []scan.Filter, _ scan.Settings, cb scan.Callback) error {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// check state
	if s.cancel != nil {
		return errors.New("already scanning")
	}

	// create resolver
	resolver, err := zeroconf.NewResolver(zeroconf.SelectIPTraffic(zeroconf.IPv4))
	if err != nil {
		return err
	}

	// prepare context
	ctx, cancel := context.WithCancel(context.Background())

	// prepare entries
	entries := make(chan *zeroconf.ServiceEntry, 8)

	// forward entries
	go func() {
		for entry := range entries {
			// skip entries without address
			if len(entry.AddrIPv4) == 0 {
				continue
			}

			// convert entry
			device := scan.Result{
				Address: entry.AddrIPv4[0].String(),
				Name:    entry.Instance,
				Source:  "mdns",
			}

			// check filters
			if !scan.Match(filters, device) {
				continue
			}

			// yield device
			cb.OnResults(device)
		}
	}()

	// perform lookup
	err = resolver.Browse(ctx, s.service, "local.", entries)
	if err != nil {
		cancel()
		return err
	}

	// set cancel
	s.cancel = cancel

	return nil
}

// Stop implements the scan.Scanner interface.
func (s *Scanner) Stop(_ scan.Callback) error {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// cancel browse
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return nil
}
