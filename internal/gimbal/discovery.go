package gimbal

import (
	"log"

	"github.com/Speshl/gimbal_client/internal/shaping"
)

// Dispatch type-switches an inbound decoded frame to the right handler. It
// is a convenience entry point for callers that don't want to switch on
// message type themselves; HandleX methods remain directly callable too.
func (c *Controller) Dispatch(frame any) {
	switch f := frame.(type) {
	case Heartbeat:
		c.HandleHeartbeat(f)
	case GimbalManagerInformation:
		c.HandleGimbalManagerInformation(f)
	case GimbalManagerStatus:
		c.HandleGimbalManagerStatus(f)
	case GimbalDeviceAttitudeStatus:
		c.HandleGimbalDeviceAttitudeStatus(f)
	default:
		log.Printf("gimbal: ignoring unrecognized frame type %T\n", f)
	}
}

// HandleHeartbeat notices a new potential gimbal manager component id the
// first time it's seen, and kicks off the discovery retry machinery for it.
func (c *Controller) HandleHeartbeat(hb Heartbeat) {
	if !c.link.ParametersReady() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.potentialManagerLocked(hb.CompID)
	c.checkCompleteLocked()
}

// HandleGimbalManagerInformation records a manager's capability flags and
// device id and upserts the corresponding GimbalRecord. Per the wire
// message, DeviceID 0 means "ask me again once a device shows up" and is not
// a valid record key.
func (c *Controller) HandleGimbalManagerInformation(msg GimbalManagerInformation) {
	if !c.link.ParametersReady() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	pm := c.potentialManagerLocked(msg.CompID)
	pm.ReceivedManagerInformation = true

	pair := GimbalPairId{ManagerCompID: msg.CompID, DeviceID: msg.DeviceID}
	if !pair.valid() {
		c.checkCompleteLocked()
		return
	}

	record := c.recordLocked(pair)
	record.adoptManagerCompID(msg.CompID)
	record.adoptDeviceID(msg.DeviceID)
	record.setCapabilityFlags(msg.CapabilityFlags)
	record.setReceivedManagerInformation()

	c.checkCompleteLocked()
}

// HandleGimbalManagerStatus records ownership (primary sysid/compid) and, if
// the manager/device ids were not yet known for this pair (e.g. because the
// device id arrived here before GIMBAL_MANAGER_INFORMATION), adopts them.
// DeviceID 0 on this message means "look this compid up by matching on
// ManagerCompID alone" -- the reverse-lookup case.
func (c *Controller) HandleGimbalManagerStatus(msg GimbalManagerStatus) {
	if !c.link.ParametersReady() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.findOrCreateForStatusLocked(msg)
	if record == nil {
		return
	}

	record.adoptManagerCompID(msg.CompID)
	if msg.DeviceID != 0 {
		record.adoptDeviceID(msg.DeviceID)
	}
	record.setReceivedManagerStatus()

	haveControl := msg.PrimarySysID == c.link.OurSystemID() && msg.PrimaryCompID == c.link.OurComponentID()
	othersHaveControl := !haveControl && msg.PrimarySysID != 0 && msg.PrimaryCompID != 0
	record.setControl(haveControl, othersHaveControl)

	c.checkCompleteLocked()
}

// findOrCreateForStatusLocked implements the DeviceID==0 reverse lookup: find
// the existing record for this manager compid rather than creating a new,
// bogus DeviceID-0 entry. If no record exists yet, only the potential-manager
// entry for the compid is ensured and the frame is dropped; its control
// fields are not kept anywhere.
func (c *Controller) findOrCreateForStatusLocked(msg GimbalManagerStatus) *GimbalRecord {
	if msg.DeviceID != 0 {
		return c.recordLocked(GimbalPairId{ManagerCompID: msg.CompID, DeviceID: msg.DeviceID})
	}
	for pair, record := range c.records {
		if pair.ManagerCompID == msg.CompID {
			return record
		}
	}
	c.potentialManagerLocked(msg.CompID)
	return nil
}

// findForAttitudeStatusLocked resolves the record a GIMBAL_DEVICE_ATTITUDE_STATUS
// frame belongs to, per the Gimbal protocol v2 device-id rules:
//
//   - device_id_field == 0: the frame's own compid IS the device id; the
//     manager compid is whatever a pre-existing record with that device id
//     already has recorded (reverse lookup). Nothing is created -- if no
//     such record exists, the frame is dropped.
//   - 1 <= device_id_field <= 6: device id is the field value, manager
//     compid is the frame's compid. A record is upserted if none exists.
//   - device_id_field > 6: invalid, dropped.
func (c *Controller) findForAttitudeStatusLocked(msg GimbalDeviceAttitudeStatus) *GimbalRecord {
	switch {
	case msg.DeviceIDField == 0:
		for _, record := range c.records {
			if record.DeviceID == msg.CompID {
				return record
			}
		}
		return nil
	case msg.DeviceIDField <= 6:
		record := c.recordLocked(GimbalPairId{ManagerCompID: msg.CompID, DeviceID: msg.DeviceIDField})
		record.adoptManagerCompID(msg.CompID)
		return record
	default:
		return nil
	}
}

// HandleGimbalDeviceAttitudeStatus updates pose and device flags for the
// record resolved by findForAttitudeStatusLocked. Angles come off the wire
// as a quaternion; the received yaw is resolved into both body- and
// earth-frame forms depending on which frame the device reported it in.
func (c *Controller) HandleGimbalDeviceAttitudeStatus(msg GimbalDeviceAttitudeStatus) {
	if !c.link.ParametersReady() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.findForAttitudeStatusLocked(msg)
	if record == nil {
		return
	}

	q := shaping.Quaternion{W: msg.Q[0], X: msg.Q[1], Y: msg.Q[2], Z: msg.Q[3]}
	roll, pitch, yaw := shaping.QuatToEuler(q)
	rollDeg, pitchDeg, yDeg := shaping.RadToDeg(roll), shaping.RadToDeg(pitch), shaping.RadToDeg(yaw)

	var bodyYaw, absoluteYaw float64
	if yawInVehicleFrame(msg.Flags) {
		bodyYaw = yDeg
		absoluteYaw = wrapPM180OneStep(bodyYaw + c.link.HeadingDeg())
	} else {
		absoluteYaw = yDeg
		bodyYaw = wrapPM180OneStep(absoluteYaw - c.link.HeadingDeg())
	}

	record.setPose(rollDeg, pitchDeg, absoluteYaw, bodyYaw)

	retracted := msg.Flags&GimbalDeviceFlagRetract != 0
	yawLock := msg.Flags&GimbalDeviceFlagYawLock != 0
	neutral := msg.Flags&GimbalDeviceFlagNeutral != 0
	record.setDeviceFlags(retracted, yawLock, neutral)

	record.setReceivedDeviceAttitudeStatus()

	c.checkCompleteLocked()
}

// yawInVehicleFrame resolves _yaw_in_vehicle_frame(flags): an explicit
// vehicle-frame or earth-frame bit wins if present, otherwise the legacy
// gimbals that predate those bits are vehicle-frame iff YAW_LOCK is clear.
func yawInVehicleFrame(flags uint32) bool {
	switch {
	case flags&GimbalDeviceFlagYawInVehicleFrame != 0:
		return true
	case flags&GimbalDeviceFlagYawInEarthFrame != 0:
		return false
	default:
		return flags&GimbalDeviceFlagYawLock == 0
	}
}

// wrapPM180OneStep mirrors the original's literal single if/else wrap: one
// subtract-or-add of 360 rather than a full modulo loop. It is applied to the
// sum or difference of the decoded yaw and the vehicle heading; one
// correction lands the result in (-180,180] as long as the heading itself
// lies in (-180,180].
func wrapPM180OneStep(deg float64) float64 {
	if deg > 180 {
		return deg - 360
	}
	if deg <= -180 {
		return deg + 360
	}
	return deg
}

// checkCompleteLocked drives the discovery retry/timeout machinery. The
// MANAGER_INFORMATION and DEVICE_ATTITUDE_STATUS probes fire on every call
// whenever their precondition holds; only the GIMBAL_MANAGER_STATUS probe is
// gated by the 1-second controller-wide throttle (shared across all pairs,
// held in Controller.lastStatusRequest), since SET_MESSAGE_INTERVAL
// for it is the one emission the spec requires to be wire-stampede-safe
// across many pairs. A record is marked complete, and the first one becomes
// active, once all three have arrived.
func (c *Controller) checkCompleteLocked() {
	for compID, pm := range c.potentialManagers {
		if pm.ReceivedManagerInformation || pm.RequestInfoRetries == 0 {
			continue
		}
		pm.RequestInfoRetries--
		c.requestGimbalManagerInformationLocked(compID)
	}

	statusThrottled := c.lastStatusRequestNeedsThrottle()

	for pair, record := range c.records {
		if !record.ReceivedManagerInformation && record.RequestInfoRetries > 0 {
			record.RequestInfoRetries--
			c.requestGimbalManagerInformationLocked(pair.ManagerCompID)
		}

		if !record.ReceivedManagerStatus && record.RequestStatusRetries > 0 && !statusThrottled {
			remaining := record.RequestStatusRetries
			record.RequestStatusRetries--
			c.requestGimbalManagerStatusLocked(pair, remaining)
			c.lastStatusRequest = c.nowLocked()
			statusThrottled = true
		}

		if !record.ReceivedDeviceAttitudeStatus && record.RequestAttitudeRetries > 0 &&
			record.ReceivedManagerInformation && pair.DeviceID != 0 {
			record.RequestAttitudeRetries--
			c.requestGimbalDeviceAttitudeStatusLocked(pair)
		}

		if record.ReceivedManagerInformation && record.ReceivedManagerStatus && record.ReceivedDeviceAttitudeStatus && !record.IsComplete {
			record.setComplete()
			c.completedOrder = append(c.completedOrder, pair)
			if c.active == nil {
				c.setActiveLocked(pair)
			}
		}
	}
}

func (c *Controller) requestGimbalManagerInformationLocked(compID uint8) {
	if err := c.link.SendCommand(compID, MAVCmdRequestMessage, false,
		float64(MsgIDGimbalManagerInformation), nanUnset(), nanUnset(), nanUnset(), nanUnset(), nanUnset(), nanUnset()); err != nil {
		log.Printf("gimbal: request manager information from %d failed: %v\n", compID, err)
	}
}

// requestGimbalManagerStatusLocked uses the default (0, "as fast as the
// manager likes") SET_MESSAGE_INTERVAL rate for the first three attempts and
// falls back to the slow 0.2Hz rate for the last two, easing wire pressure
// from a manager that isn't answering. remainingBeforeDecrement is the
// retry count the caller observed before decrementing it for this attempt.
func (c *Controller) requestGimbalManagerStatusLocked(pair GimbalPairId, remainingBeforeDecrement uint8) {
	interval := float64(StatusIntervalDefaultUs)
	if remainingBeforeDecrement <= initialRetries-3 {
		interval = float64(StatusIntervalSlowUs)
	}
	if err := c.link.SendCommand(pair.ManagerCompID, MAVCmdSetMessageInterval, false,
		float64(MsgIDGimbalManagerStatus), interval, nanUnset(), nanUnset(), nanUnset(), nanUnset(), nanUnset()); err != nil {
		log.Printf("gimbal: request manager status for %+v failed: %v\n", pair, err)
	}
}

// requestGimbalDeviceAttitudeStatusLocked targets the manager compid for
// device ids within the manager's own component range (<=6); beyond that the
// device id is itself a routable compid and becomes the target.
func (c *Controller) requestGimbalDeviceAttitudeStatusLocked(pair GimbalPairId) {
	target := pair.ManagerCompID
	if pair.DeviceID > 6 {
		target = pair.DeviceID
	}
	if err := c.link.SendCommand(target, MAVCmdSetMessageInterval, false,
		float64(MsgIDGimbalDeviceAttitudeStatus), StatusIntervalDefaultUs, nanUnset(), nanUnset(), nanUnset(), nanUnset(), nanUnset()); err != nil {
		log.Printf("gimbal: request device attitude status for %+v failed: %v\n", pair, err)
	}
}
