package main

import (
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
)

var usage = `blescan - the device scan utility

Usage:
  blescan scan [--pattern=<glob> --service=<uuid> --duration=<ms> --buffer=<n> --profile=<path>]
  blescan discover [--type=<type> --pattern=<glob> --duration=<ms>]
  blescan collect [--mqtt=<url> --pattern=<glob> --duration=<ms>]

Options:
  -p --pattern=<glob>  Only show devices with a matching name.
  -s --service=<uuid>  Only show devices advertising the given service.
  -d --duration=<ms>   The scan duration [default: 10s].
  -b --buffer=<n>      The delivery buffer size [default: 16].
  -f --profile=<path>  Load filters and settings from a profile file.
  -m --mqtt=<url>      The MQTT broker URL [default: mqtt://localhost].
  -y --type=<type>     The mDNS service type [default: _blescan._tcp].
  -h --help            Show this screen.
`

type command struct {
	// commands
	cScan     bool
	cDiscover bool
	cCollect  bool

	// options
	oPattern  string
	oService  string
	oDuration time.Duration
	oBuffer   int
	oProfile  string
	oMQTT     string
	oType     string
}

func parseCommand() *command {
	a, err := docopt.Parse(usage, nil, true, "", false)
	exitIfSet(err)

	return &command{
		// commands
		cScan:     getBool(a["scan"]),
		cDiscover: getBool(a["discover"]),
		cCollect:  getBool(a["collect"]),

		// options
		oPattern:  getString(a["--pattern"]),
		oService:  getString(a["--service"]),
		oDuration: getDuration(a["--duration"]),
		oBuffer:   getInt(a["--buffer"]),
		oProfile:  getString(a["--profile"]),
		oMQTT:     getString(a["--mqtt"]),
		oType:     getString(a["--type"]),
	}
}

func getBool(field interface{}) bool {
	val, _ := field.(bool)
	return val
}

func getString(field interface{}) string {
	str, _ := field.(string)
	return str
}

func getInt(field interface{}) int {
	str, _ := field.(string)
	val, _ := strconv.Atoi(str)
	return val
}

func getDuration(field interface{}) time.Duration {
	str, _ := field.(string)
	val, _ := time.ParseDuration(str)
	return val
}
