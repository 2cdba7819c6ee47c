package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/256dpi/blescan/pkg/ble"
	"github.com/256dpi/blescan/pkg/mdns"
	"github.com/256dpi/blescan/pkg/mqtt"
	"github.com/256dpi/blescan/pkg/precheck"
	"github.com/256dpi/blescan/pkg/scan"
)

var mqttURI = flag.String("mqtt", "", "The MQTT broker URI.")
var mdnsService = flag.String("mdns", "", "The mDNS service type.")
var pattern = flag.String("pattern", "", "Only show devices with a matching name.")

func main() {
	// parse flags
	flag.Parse()

	// prepare state
	state := newState()

	// run UI
	runUI(state)
}

func runUI(state *state) {
	// create app
	app := tview.NewApplication().
		EnableMouse(true)

	// set up pages
	pages := tview.NewPages()
	app.SetRoot(pages, true)

	// prepare device table
	table := tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false)
	table.SetBorder(true).
		SetTitle("Devices (c to clear, l to focus logs)")

	// prepare log view
	log := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	log.SetBorder(true).
		SetTitle("Logs (esc to return)")

	// prepare container
	container := tview.NewFlex().SetDirection(tview.FlexRow)
	container.AddItem(table, 0, 3, true)
	container.AddItem(log, 0, 1, false)

	// add main page
	pages.AddPage("main", container, true, true)

	// prepare log updater
	updateLogView := func() {
		lines := state.logger.Snapshot()
		if len(lines) == 0 {
			lines = []string{"No log messages yet"}
		}
		log.SetText(strings.Join(lines, "\n"))
		log.ScrollToEnd()
	}

	// update log immediately and on changes
	updateLogView()
	state.logger.Bind(func() {
		app.QueueUpdateDraw(updateLogView)
	})

	// prepare table updater
	updateTableView := func() {
		// set headers
		headers := []string{"SOURCE", "ADDRESS", "NAME", "RSSI", "SEEN"}
		for i, header := range headers {
			table.SetCell(0, i, tview.NewTableCell(header).
				SetSelectable(false).
				SetAttributes(tcell.AttrBold))
		}

		// add devices
		for i, device := range state.snapshot() {
			// prepare signal strength
			rssi := "n/a"
			if device.result.RSSI != 0 {
				rssi = fmt.Sprintf("%d", device.result.RSSI)
			}

			// prepare last seen
			seen := time.Since(device.lastSeen).Truncate(time.Second).String() + " ago"

			// set cells
			table.SetCell(i+1, 0, tview.NewTableCell(device.result.Source))
			table.SetCell(i+1, 1, tview.NewTableCell(device.result.Address))
			table.SetCell(i+1, 2, tview.NewTableCell(device.result.Name))
			table.SetCell(i+1, 3, tview.NewTableCell(rssi))
			table.SetCell(i+1, 4, tview.NewTableCell(seen))
		}
	}

	// update table immediately and every second
	updateTableView()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			app.QueueUpdateDraw(updateTableView)
		}
	}()

	// prepare lifecycle context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// prepare filters
	var filters []scan.Filter
	if *pattern != "" {
		filters = append(filters, scan.Filter{Name: *pattern})
	}

	// prepare managers
	managers := []*scan.Manager{
		scan.NewManager(ctx, ble.NewScanner()),
	}
	if *mdnsService != "" {
		managers = append(managers, scan.NewManager(ctx, mdns.NewScanner(*mdnsService)))
	}
	if *mqttURI != "" {
		managers = append(managers, scan.NewManager(ctx, mqtt.NewScanner(*mqttURI)))
	}

	// prepare session consumer
	consume := func(manager *scan.Manager) {
		// start session
		events, err := manager.Start(ctx, filters, scan.Settings{})
		if err != nil {
			state.log("[red]Scan error[-]: %v", err)
			return
		}

		// register devices
		for event := range events {
			if event.Err != nil {
				state.log("[red]Scan failed[-]: code %d", scan.FailureCode(event.Err))
				return
			}
			state.register(event.Device)
		}
	}

	// prepare coordinator
	host := &modalHost{app: app, pages: pages}
	coordinator := precheck.NewCoordinator(host)
	host.coordinator = coordinator

	// negotiate preconditions and start sessions in background
	go func() {
		ok, err := coordinator.Negotiate(ctx)
		if err != nil {
			state.log("[red]Negotiation error[-]: %v", err)
			return
		} else if !ok {
			state.log("[red]Scan preconditions rejected[-]")
			return
		}

		// log success
		state.log("Preconditions satisfied, scanning...")

		// start sessions
		for _, manager := range managers {
			go consume(manager)
		}
	}()

	// handle key bindings
	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'c', 'C':
				// clear seen devices and registry
				for _, manager := range managers {
					manager.ClearSeen()
				}
				state.clear()
				table.Clear()
				state.log("Cleared seen devices")
				updateTableView()
				return nil
			case 'l', 'L':
				app.SetFocus(log)
				return nil
			}
		}
		return event
	})
	log.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			app.SetFocus(table)
			return nil
		}
		return event
	})

	// handle app done
	table.SetDoneFunc(func(_ tcell.Key) {
		app.Stop()
	})

	// run app
	err := app.Run()
	if err != nil {
		panic(err)
	}
}
