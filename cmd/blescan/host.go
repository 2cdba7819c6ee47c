package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/256dpi/blescan/pkg/ble"
	"github.com/256dpi/blescan/pkg/precheck"
)

// terminalHost satisfies the scan preconditions interactively on the
// terminal. Location services and runtime permissions are not gated on
// desktop systems; the radio state is backed by the real BLE adapter.
type terminalHost struct {
	coordinator *precheck.Coordinator
	reader      *bufio.Reader
}

func newTerminalHost() *terminalHost {
	return &terminalHost{
		reader: bufio.NewReader(os.Stdin),
	}
}

func (h *terminalHost) LocationEnabled() bool {
	return true
}

func (h *terminalHost) OpenLocationSettings(tag int) bool {
	// ask user
	if !h.prompt("Location services are disabled. Open the system settings?") {
		return false
	}

	// report outcome once the user is done
	go func() {
		h.await("Press enter once location services are enabled.")
		h.coordinator.HandleActivityResult(tag, precheck.ResultOK)
	}()

	return true
}

func (h *terminalHost) PermissionGranted() bool {
	return true
}

func (h *terminalHost) ShouldExplain() bool {
	return false
}

func (h *terminalHost) ShowRationale() {}

func (h *terminalHost) RequestPermission(tag int) {
	// report grant outcome
	go func() {
		granted := h.prompt("Allow this tool to scan for nearby devices?")
		h.coordinator.HandlePermissionResult(tag, []bool{granted})
	}()
}

func (h *terminalHost) RadioEnabled() bool {
	return ble.Enabled()
}

func (h *terminalHost) RequestRadio(tag int) {
	// report outcome once the user is done
	go func() {
		// ask user
		if !h.prompt("Bluetooth is switched off. Enable it now?") {
			h.coordinator.HandleActivityResult(tag, precheck.ResultCanceled)
			return
		}

		// await confirmation
		h.await("Press enter once Bluetooth is enabled.")

		// report re-checked state
		code := precheck.ResultCanceled
		if ble.Enabled() {
			code = precheck.ResultOK
		}
		h.coordinator.HandleActivityResult(tag, code)
	}()
}

func (h *terminalHost) prompt(msg string) bool {
	// ask question
	fmt.Printf("%s [y/N] ", msg)

	// read answer
	line, _ := h.reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))

	return line == "y" || line == "yes"
}

func (h *terminalHost) await(msg string) {
	// wait for confirmation
	fmt.Printf("%s ", msg)
	_, _ = h.reader.ReadString('\n')
}
