// Package gimbal implements the gimbal manager client: discovery,
// ownership arbitration, command issuing, rate keep-alive and joystick
// shaping, all confined to the controller's own mutex-guarded state --
// the same "one owner struct, lock around mutation" shape the teacher uses
// for CrawlerState/SmallRacerState.
package gimbal

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Speshl/gimbal_client/internal/gimballog"
	"github.com/google/uuid"
)

const rateKeepAliveInterval = 500 * time.Millisecond
const statusRequestThrottle = 1 * time.Second
const joystickSampleQueueSize = 8
const messageLogCapacity = 100
const joystickActiveThreshold = 1e-3

// Signals are the outward-facing notifications spec'd for a UI layer to
// subscribe to. Each channel is buffered and only ever written to with a
// non-blocking send, so a slow or absent subscriber never stalls the
// controller -- the same pattern as the teacher's hudChannel/speakerChannel.
type Signals struct {
	ActiveGimbalChanged           chan GimbalPairId
	ShowAcquireGimbalControlPopup chan struct{}
	GimbalMessageLogChanged       chan struct{}
	RecordChanged                 chan GimbalPairId
}

func newSignals() Signals {
	return Signals{
		ActiveGimbalChanged:           make(chan GimbalPairId, 8),
		ShowAcquireGimbalControlPopup: make(chan struct{}, 8),
		GimbalMessageLogChanged:       make(chan struct{}, 8),
		RecordChanged:                 make(chan GimbalPairId, 64),
	}
}

func notify[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// Controller is the facade: it owns the record table, the active-gimbal
// selection, and routes inbound frames and outbound commands. All mutation
// happens under mu, standing in for the single logical execution context
// described by the spec -- callers may call HandleX methods from a link's
// receiver goroutine and Process*/Send*/Gimbal* methods from elsewhere
// without additional synchronization.
type Controller struct {
	mu       sync.Mutex
	link     VehicleLink
	settings SettingsSource

	sessionID uuid.UUID
	log       *gimballog.Ring

	records           map[GimbalPairId]*GimbalRecord
	potentialManagers map[uint8]*PotentialGimbalManager
	completedOrder    []GimbalPairId
	active            *GimbalPairId

	lastStatusRequest time.Time

	rateTimer *time.Timer

	joystickSamples        chan []float64
	joystickPitchInput     float64
	joystickYawInput       float64
	joystickSmoothedPitch  float64
	joystickSmoothedYaw    float64
	joystickSendTimer      *time.Timer
	joystickActive         bool

	Signals Signals
}

// NewController builds a controller bound to a vehicle link and a settings
// source. The controller owns no goroutine until Run is started.
func NewController(link VehicleLink, settings SettingsSource) *Controller {
	return &Controller{
		link:              link,
		settings:          settings,
		sessionID:         uuid.New(),
		log:               gimballog.NewRing(messageLogCapacity),
		records:           make(map[GimbalPairId]*GimbalRecord),
		potentialManagers: make(map[uint8]*PotentialGimbalManager),
		joystickSamples:   make(chan []float64, joystickSampleQueueSize),
		Signals:           newSignals(),
	}
}

// Run drains the joystick sample queue until ctx is done. Callers launch it
// alongside their own link receiver loop, e.g. inside an errgroup.Go, the
// same way the teacher's Crawler/SmallRacer/Speaker each own one Start loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-c.joystickSamples:
			if !ok {
				return nil
			}
			c.handleJoystickSample(sample)
		}
	}
}

// Close stops any running timers. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRateTimerLocked()
	c.stopJoystickSendTimerLocked()
}

// recordLocked upserts the record for pair, wiring its change notifications
// to Signals.RecordChanged. Callers must hold mu.
func (c *Controller) recordLocked(pair GimbalPairId) *GimbalRecord {
	record, ok := c.records[pair]
	if !ok {
		record = newGimbalRecord(pair, func(p GimbalPairId) {
			notify(c.Signals.RecordChanged, p)
		})
		c.records[pair] = record
	}
	return record
}

func (c *Controller) potentialManagerLocked(compID uint8) *PotentialGimbalManager {
	pm, ok := c.potentialManagers[compID]
	if !ok {
		pm = newPotentialGimbalManager()
		c.potentialManagers[compID] = pm
		log.Printf("new potential gimbal manager component: %d\n", compID)
	}
	return pm
}

// ActiveGimbal reports the currently active pair, if any.
func (c *Controller) ActiveGimbal() (GimbalPairId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return GimbalPairId{}, false
	}
	return *c.active, true
}

// SetActiveGimbal explicitly replaces the active gimbal selection. The pair
// must reference a complete record.
func (c *Controller) SetActiveGimbal(pair GimbalPairId) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[pair]
	if !ok || !record.IsComplete {
		return false
	}
	c.setActiveLocked(pair)
	return true
}

func (c *Controller) setActiveLocked(pair GimbalPairId) {
	if c.active != nil && *c.active == pair {
		return
	}
	c.active = &pair
	notify(c.Signals.ActiveGimbalChanged, pair)
}

// Record returns a snapshot of the record for pair, if known.
func (c *Controller) Record(pair GimbalPairId) (GimbalRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[pair]
	if !ok {
		return GimbalRecord{}, false
	}
	return *record, true
}

// CompletedGimbals returns the pairs that have reached IsComplete, in the
// order they completed.
func (c *Controller) CompletedGimbals() []GimbalPairId {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]GimbalPairId, len(c.completedOrder))
	copy(out, c.completedOrder)
	return out
}

// MessageLog returns a newest-first snapshot of the outbound-attitude log.
func (c *Controller) MessageLog() []gimballog.Entry {
	return c.log.Entries()
}

// logMessage appends a line to the outbound-attitude log and wakes any
// subscriber, mirroring the original's _addMessageLog, which always calls
// gimbalMessageLogChanged() after appending.
func (c *Controller) logMessage(at time.Time, message string) {
	c.log.Add(at, message)
	notify(c.Signals.GimbalMessageLogChanged, struct{}{})
}

// ClearMessageLog empties the message log and signals the change. Not part
// of the distilled spec, but present in the original controller
// (clearMessageLog) and not excluded by any non-goal.
func (c *Controller) ClearMessageLog() {
	c.log.Clear()
	notify(c.Signals.GimbalMessageLogChanged, struct{}{})
}

func (c *Controller) activeRecordLocked() (GimbalPairId, *GimbalRecord, bool) {
	if c.active == nil {
		return GimbalPairId{}, nil, false
	}
	record, ok := c.records[*c.active]
	if !ok {
		return GimbalPairId{}, nil, false
	}
	return *c.active, record, true
}

func logConflict(field string, stored, frame uint8) {
	log.Printf("warning: conflicting %s: stored=%d frame=%d, keeping stored value\n", field, stored, frame)
}

// nowLocked exists so the throttle/retry machinery has a single seam; it
// is not itself state, just time.Now wrapped for readability at call sites.
func (c *Controller) nowLocked() time.Time {
	return time.Now()
}

func (c *Controller) lastStatusRequestNeedsThrottle() bool {
	if c.lastStatusRequest.IsZero() {
		return false
	}
	return time.Since(c.lastStatusRequest) < statusRequestThrottle
}

// nanUnset is the MAVLink convention for "parameter not used" on COMMAND_LONG.
func nanUnset() float64 {
	return math.NaN()
}
