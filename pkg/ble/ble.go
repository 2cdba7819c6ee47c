// Package ble adapts the platform BLE adapter to the scan.Scanner interface.
package ble

import (
	"strings"

	"github.com/ryanuber/go-glob"
	"tinygo.org/x/bluetooth"

	"github.com/256dpi/blescan/pkg/scan"
)

var adapter = bluetooth.DefaultAdapter

// Enable will enable the BLE adapter. It is safe to call multiple times.
func Enable() error {
	// enable adapter
	err := adapter.Enable()
	if err != nil && !strings.Contains(err.Error(), "already calling Enable function") {
		return err
	}

	return nil
}

// Enabled returns whether the BLE adapter is available and enabled.
func Enabled() bool {
	return Enable() == nil
}

// Scanner scans for BLE devices using the platform adapter. It implements the
// scan.Scanner interface.
type Scanner struct{}

// NewScanner creates a new scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Start implements the scan.Scanner interface.
func (s *Scanner) Start(filters []scan.Filter, _ scan.Settings, cb scan.Callback) error {
	// enable adapter
	err := Enable()
	if err != nil {
		return err
	}

	// scan in background
	go func() {
		err := adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			// check filters
			if !matches(filters, result) {
				return
			}

			// yield device
			cb.OnResults(scan.Result{
				Address: result.Address.String(),
				Name:    result.LocalName(),
				RSSI:    result.RSSI,
				Source:  "ble",
			})
		})
		if err != nil {
			cb.OnFailure(scan.FailureInternal)
		}
	}()

	return nil
}

// Stop implements the scan.Scanner interface.
func (s *Scanner) Stop(_ scan.Callback) error {
	// stop scan, tolerating benign errors
	err := adapter.StopScan()
	if err != nil && !strings.Contains(err.Error(), "scanning") {
		return err
	}

	return nil
}

func matches(filters []scan.Filter, result bluetooth.ScanResult) bool {
	// match all if no filters
	if len(filters) == 0 {
		return true
	}

	// check filters
	for _, filter := range filters {
		// match name against glob pattern
		if filter.Name != "" && !glob.Glob(filter.Name, result.LocalName()) {
			continue
		}

		// match advertised service
		if filter.Service != "" {
			uuid, err := bluetooth.ParseUUID(filter.Service)
			if err != nil || !result.HasServiceUUID(uuid) {
				continue
			}
		}

		return true
	}

	return false
}
