// Package mqtt adapts broker announced devices to the scan.Scanner interface.
// Devices publish `type,name,address` payloads on the announcement topic,
// either on their own or in response to a collect request.
package mqtt

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/256dpi/gomqtt/client"
	"github.com/256dpi/gomqtt/packet"

	"github.com/256dpi/blescan/pkg/scan"
)

// AnnouncementTopic is the topic devices announce themselves on.
const AnnouncementTopic = "/blescan/announcement"

// CollectTopic is the topic used to request announcements.
const CollectTopic = "/blescan/collect"

// Scanner collects devices that announce themselves on an MQTT broker. It
// implements the scan.Scanner interface.
type Scanner struct {
	url    string
	client *client.Client
	mutex  sync.Mutex
}

// NewScanner creates a new scanner using the specified broker URL.
func NewScanner(url string) *Scanner {
	return &Scanner{
		url: url,
	}
}

// Start implements the scan.Scanner interface.
func (s *Scanner) Start(filters []scan.Filter, _ scan.Settings, cb scan.Callback) error {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// check state
	if s.client != nil {
		return errors.New("already scanning")
	}

	// create client
	cl := client.New()

	// set callback
	cl.Callback = func(msg *packet.Message, err error) error {
		// report errors
		if err != nil {
			cb.OnFailure(scan.FailureInternal)
			return err
		}

		// get data from payload
		data := strings.Split(string(msg.Payload), ",")

		// skip malformed announcements
		if len(data) < 3 {
			return nil
		}

		// convert announcement
		device := scan.Result{
			Address: data[2],
			Name:    data[1],
			Source:  "mqtt",
		}

		// check filters
		if !scan.Match(filters, device) {
			return nil
		}

		// yield device
		cb.OnResults(device)

		return nil
	}

	// connect to the broker using the provided url
	cf, err := cl.Connect(client.NewConfig(s.url))
	if err != nil {
		return err
	}
	err = cf.Wait(5 * time.Second)
	if err != nil {
		return err
	}

	// subscribe to announcement topic
	sf, err := cl.Subscribe(AnnouncementTopic, packet.QOSAtMostOnce)
	if err != nil {
		_ = cl.Close()
		return err
	}
	err = sf.Wait(5 * time.Second)
	if err != nil {
		_ = cl.Close()
		return err
	}

	// request announcements
	pf, err := cl.Publish(CollectTopic, []byte(""), packet.QOSAtMostOnce, false)
	if err != nil {
		_ = cl.Close()
		return err
	}
	err = pf.Wait(5 * time.Second)
	if err != nil {
		_ = cl.Close()
		return err
	}

	// set client
	s.client = cl

	return nil
}

// Stop implements the scan.Scanner interface.
func (s *Scanner) Stop(_ scan.Callback) error {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// check client
	if s.client == nil {
		return nil
	}

	// clear client
	cl := s.client
	s.client = nil

	// attempt to disconnect
	err := cl.Disconnect()
	if err != nil {
		return err
	}

	return nil
}
