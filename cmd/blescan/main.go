package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/256dpi/blescan/pkg/ble"
	"github.com/256dpi/blescan/pkg/mdns"
	"github.com/256dpi/blescan/pkg/mqtt"
	"github.com/256dpi/blescan/pkg/precheck"
	"github.com/256dpi/blescan/pkg/scan"
	"github.com/256dpi/blescan/pkg/utils"
)

func main() {
	// parse command
	cmd := parseCommand()

	// run desired command
	if cmd.cScan {
		scanDevices(cmd)
	} else if cmd.cDiscover {
		discover(cmd)
	} else if cmd.cCollect {
		collect(cmd)
	}
}

func scanDevices(cmd *command) {
	// negotiate preconditions
	host := newTerminalHost()
	coordinator := precheck.NewCoordinator(host)
	host.coordinator = coordinator

	ok, err := coordinator.Negotiate(context.Background())
	exitIfSet(err)
	if !ok {
		exitWithError("scan preconditions rejected")
	}

	// run session
	run(cmd, ble.NewScanner())
}

func discover(cmd *command) {
	// run session
	run(cmd, mdns.NewScanner(cmd.oType))
}

func collect(cmd *command) {
	// run session
	run(cmd, mqtt.NewScanner(cmd.oMQTT))
}

func run(cmd *command, scanner scan.Scanner) {
	// get configuration
	filters, settings := getConfig(cmd)

	// create manager
	manager := scan.NewManager(context.Background(), scanner)

	// prepare context
	ctx, cancel := context.WithTimeout(context.Background(), cmd.oDuration)
	defer cancel()

	// cancel on interrupt
	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt)
		<-exit
		cancel()
	}()

	// start session
	events, err := manager.Start(ctx, filters, settings)
	exitIfSet(err)

	// log info
	utils.Log(os.Stdout, "Scanning for devices... (press Ctrl+C to stop)")

	// prepare table
	tbl := newTable("SOURCE", "ADDRESS", "NAME", "RSSI")

	// prepare list
	var devices []scan.Result

	// show devices
	for event := range events {
		// handle failures
		if event.Err != nil {
			exitWithError(event.Err.Error())
		}

		// add device
		devices = append(devices, event.Device)

		// clear previously printed table
		tbl.clear()

		// add rows
		for _, device := range devices {
			// prepare signal strength
			rssi := "n/a"
			if device.RSSI != 0 {
				rssi = strconv.FormatInt(int64(device.RSSI), 10)
			}

			// add entry
			tbl.add(device.Source, device.Address, device.Name, rssi)
		}

		// show table
		tbl.print()
	}

	// log info
	utils.Log(os.Stdout, "Done.")
}

func getConfig(cmd *command) ([]scan.Filter, scan.Settings) {
	// load profile if available
	if cmd.oProfile != "" {
		profile, err := scan.ReadProfile(cmd.oProfile)
		exitIfSet(err)
		return profile.Filters, profile.Settings
	}

	// prepare filters
	var filters []scan.Filter
	if cmd.oPattern != "" || cmd.oService != "" {
		filters = append(filters, scan.Filter{
			Name:    cmd.oPattern,
			Service: cmd.oService,
		})
	}

	// prepare settings
	settings := scan.Settings{
		Buffer: cmd.oBuffer,
	}
	settings.Validate()

	return filters, settings
}

func exitIfSet(errs ...error) {
	for _, err := range errs {
		if err != nil {
			exitWithError(err.Error())
		}
	}
}

func exitWithError(str string) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", str)
	os.Exit(1)
}
