package main

import (
	"github.com/rivo/tview"

	"github.com/256dpi/blescan/pkg/ble"
	"github.com/256dpi/blescan/pkg/precheck"
)

// modalHost satisfies the scan preconditions using modal dialogs. Location
// services are not gated on desktop systems; scanning consent is modelled as
// an app-level permission and the radio state is backed by the real adapter.
type modalHost struct {
	app         *tview.Application
	pages       *tview.Pages
	coordinator *precheck.Coordinator
	granted     bool
}

func (h *modalHost) LocationEnabled() bool {
	return true
}

func (h *modalHost) OpenLocationSettings(_ int) bool {
	// location settings cannot be opened from the dashboard
	return false
}

func (h *modalHost) PermissionGranted() bool {
	return h.granted
}

func (h *modalHost) ShouldExplain() bool {
	return false
}

func (h *modalHost) ShowRationale() {}

func (h *modalHost) RequestPermission(tag int) {
	// ask user
	h.ask("Allow this tool to scan for nearby devices?", []string{"Allow", "Deny"}, func(label string) {
		h.granted = label == "Allow"
		h.coordinator.HandlePermissionResult(tag, []bool{h.granted})
	})
}

func (h *modalHost) RadioEnabled() bool {
	return ble.Enabled()
}

func (h *modalHost) RequestRadio(tag int) {
	// ask user
	h.ask("Bluetooth is switched off. Enable it and retry.", []string{"Retry", "Cancel"}, func(label string) {
		// report re-checked state
		code := precheck.ResultCanceled
		if label == "Retry" && ble.Enabled() {
			code = precheck.ResultOK
		}
		h.coordinator.HandleActivityResult(tag, code)
	})
}

// ask shows a modal with the provided buttons and calls done with the label
// of the selected one.
func (h *modalHost) ask(text string, buttons []string, done func(label string)) {
	h.app.QueueUpdateDraw(func() {
		// create modal
		modal := tview.NewModal()
		modal.SetText(text)
		modal.AddButtons(buttons)
		modal.SetDoneFunc(func(_ int, label string) {
			h.pages.RemovePage("ask")
			done(label)
		})

		// show modal
		h.pages.AddPage("ask", modal, true, true)
		h.app.SetFocus(modal)
	})
}
