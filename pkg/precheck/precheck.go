// Package precheck negotiates the preconditions required before a device scan
// can run: an enabled location service, a granted runtime permission and a
// switched on radio. Each stage may require a user interaction whose outcome
// the host reports back through the coordinator's handler methods.
package precheck

import (
	"context"
	"errors"
	"sync"

	"github.com/256dpi/blescan/pkg/pending"
)

// The request tags used to correlate user interaction results with their
// in-flight negotiation stage.
const (
	LocationRequest   = 61441
	PermissionRequest = 61442
	RadioRequest      = 61443
)

// The result codes reported through HandleActivityResult.
const (
	ResultOK       = -1
	ResultCanceled = 0
)

// ErrNegotiating is returned when a negotiation is started while another one
// is in flight.
var ErrNegotiating = errors.New("negotiation in flight")

// Host provides the platform capabilities and user interactions needed to
// satisfy the scan preconditions. The request methods return immediately; the
// interaction outcome is reported later through the coordinator's handler
// methods using the provided tag.
type Host interface {
	// LocationEnabled returns whether the location service is enabled.
	LocationEnabled() bool

	// OpenLocationSettings asks the user to open the location settings and
	// returns whether the user accepted the prompt.
	OpenLocationSettings(tag int) bool

	// PermissionGranted returns whether the scan permission is granted.
	PermissionGranted() bool

	// ShouldExplain returns whether a rationale should be shown before
	// requesting the scan permission.
	ShouldExplain() bool

	// ShowRationale presents the rationale and returns once it is dismissed.
	ShowRationale()

	// RequestPermission asks the user to grant the scan permission.
	RequestPermission(tag int)

	// RadioEnabled returns whether the radio is switched on.
	RadioEnabled() bool

	// RequestRadio asks the user to switch on the radio.
	RequestRadio(tag int)
}

// A Coordinator negotiates the scan preconditions against a host. At most one
// negotiation is in flight at a time.
type Coordinator struct {
	host       Host
	location   *pending.Pending[bool]
	permission *pending.Pending[bool]
	radio      *pending.Pending[bool]
	mutex      sync.Mutex
}

// NewCoordinator creates a new coordinator using the provided host.
func NewCoordinator(host Host) *Coordinator {
	return &Coordinator{
		host: host,
	}
}

// Negotiate checks the three preconditions in sequence, requesting a user
// interaction and suspending until its outcome is reported where a check
// fails. It returns false as soon as one stage is rejected and true once all
// stages are satisfied. The host must report every interaction outcome, or
// the call only returns when the context is cancelled. A second negotiation
// while one is in flight returns ErrNegotiating.
func (c *Coordinator) Negotiate(ctx context.Context) (bool, error) {
	// acquire mutex
	c.mutex.Lock()

	// check state
	if c.location != nil {
		c.mutex.Unlock()
		return false, ErrNegotiating
	}

	// create slots
	c.location = pending.New[bool]()
	c.permission = pending.New[bool]()
	c.radio = pending.New[bool]()

	// release mutex
	c.mutex.Unlock()

	// clear slots on all paths
	defer c.clear()

	// check location service
	if !c.host.LocationEnabled() {
		// request settings interaction
		if !c.host.OpenLocationSettings(LocationRequest) {
			return false, nil
		}

		// await reported outcome
		ok, err := c.location.Await(ctx)
		if err != nil {
			return false, err
		} else if !ok {
			return false, nil
		}
	}

	// check permission
	if !c.host.PermissionGranted() {
		// show rationale if warranted
		if c.host.ShouldExplain() {
			c.host.ShowRationale()
		}

		// request permission
		c.host.RequestPermission(PermissionRequest)

		// await reported outcome
		ok, err := c.permission.Await(ctx)
		if err != nil {
			return false, err
		} else if !ok {
			return false, nil
		}
	}

	// check radio
	if !c.host.RadioEnabled() {
		// request radio interaction
		c.host.RequestRadio(RadioRequest)

		// await reported outcome
		ok, err := c.radio.Await(ctx)
		if err != nil {
			return false, err
		} else if !ok {
			return false, nil
		}
	}

	return true, nil
}

// Negotiating returns whether a negotiation is in flight.
func (c *Coordinator) Negotiating() bool {
	// acquire mutex
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.location != nil
}

// HandlePermissionResult forwards a permission request outcome. It returns
// whether the call matched the in-flight permission stage; on false the host
// should fall through to its own handling. The grant flags cover all
// permissions of the request and must all be set for the stage to pass.
func (c *Coordinator) HandlePermissionResult(tag int, granted []bool) bool {
	// check tag
	if tag != PermissionRequest {
		return false
	}

	// get slot
	c.mutex.Lock()
	slot := c.permission
	c.mutex.Unlock()

	// check slot
	if slot == nil || slot.Settled() {
		return false
	}

	// evaluate flags
	ok := len(granted) > 0
	for _, flag := range granted {
		if !flag {
			ok = false
		}
	}

	// settle stage
	slot.Settle(ok)

	return true
}

// HandleActivityResult forwards a user interaction outcome. It returns
// whether the call matched an in-flight stage; on false the host should fall
// through to its own handling. A completed location settings interaction
// re-checks the location service, as the interaction alone does not guarantee
// that the setting changed.
func (c *Coordinator) HandleActivityResult(tag, code int) bool {
	// get slots
	c.mutex.Lock()
	location := c.location
	radio := c.radio
	c.mutex.Unlock()

	// handle tag
	switch tag {
	case LocationRequest:
		// check slot
		if location == nil || location.Settled() {
			return false
		}

		// settle stage with re-checked state
		location.Settle(code == ResultOK && c.host.LocationEnabled())

		return true
	case RadioRequest:
		// check slot
		if radio == nil || radio.Settled() {
			return false
		}

		// settle stage
		radio.Settle(code == ResultOK)

		return true
	}

	return false
}

// clear discards all slots, restoring the idle state.
func (c *Coordinator) clear() {
	// acquire mutex
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// discard slots
	c.location = nil
	c.permission = nil
	c.radio = nil
}
