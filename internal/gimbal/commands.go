package gimbal

import (
	"fmt"
	"math"

	"github.com/Speshl/gimbal_client/internal/shaping"
)

// ErrNoActiveGimbal is returned by any Send*/Gimbal* command when no gimbal
// is currently selected as active.
var ErrNoActiveGimbal = fmt.Errorf("gimbal: no active gimbal selected")

// ErrGimbalLinkUnavailable is returned when the vehicle has no primary link
// to send a command on.
var ErrGimbalLinkUnavailable = fmt.Errorf("gimbal: no primary link available")

// AcquireGimbalControl asks the active gimbal's manager to hand control to
// us by sending DO_GIMBAL_MANAGER_CONFIGURE naming our own system/component.
// -1 for the secondary pair means "leave secondary unchanged".
func (c *Controller) AcquireGimbalControl() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, _, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	return c.link.SendCommand(pair.ManagerCompID, MAVCmdDoGimbalManagerConfigure, true,
		float64(c.link.OurSystemID()), float64(c.link.OurComponentID()), -1, -1, nanUnset(), nanUnset(), float64(pair.DeviceID))
}

// ReleaseGimbalControl gives control up by naming sysid/compid -3 (MAVLink's
// "release if we hold it" sentinel), per DO_GIMBAL_MANAGER_CONFIGURE semantics.
func (c *Controller) ReleaseGimbalControl() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, _, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	return c.link.SendCommand(pair.ManagerCompID, MAVCmdDoGimbalManagerConfigure, true,
		-3, -3, -1, -1, nanUnset(), nanUnset(), float64(pair.DeviceID))
}

// tryGetGimbalControlLocked is the gate every pointing/rate command passes
// through. If another operator already holds control, it refuses outright
// and signals the UI rather than attempting to steal it; the UI may then
// call AcquireGimbalControl explicitly. Otherwise, if we don't have control
// yet, it fires the acquire command once and reports false so the caller
// skips issuing the pointing command this call -- matching the original's
// "acquire, then let the next attitude message actually move it" two-step.
func (c *Controller) tryGetGimbalControlLocked(pair GimbalPairId, record *GimbalRecord) bool {
	if record.HaveControl {
		return true
	}
	if record.OthersHaveControl {
		notify(c.Signals.ShowAcquireGimbalControlPopup, struct{}{})
		return false
	}
	if err := c.link.SendCommand(pair.ManagerCompID, MAVCmdDoGimbalManagerConfigure, true,
		float64(c.link.OurSystemID()), float64(c.link.OurComponentID()), -1, -1, nanUnset(), nanUnset(), float64(pair.DeviceID)); err != nil {
		c.logMessage(c.nowLocked(), fmt.Sprintf("failed to acquire control of gimbal %+v: %v", pair, err))
	}
	return false
}

// sendPitchYawCommandLocked issues DO_GIMBAL_MANAGER_PITCHYAW, the command
// every pointing and rate variant in this file ultimately funnels through.
// p6 is reserved and always 0; p7 carries the target device id.
func (c *Controller) sendPitchYawCommandLocked(pair GimbalPairId, pitchDeg, yawDeg, pitchRateDps, yawRateDps float64, flags uint32) error {
	return c.link.SendCommand(pair.ManagerCompID, MAVCmdDoGimbalManagerPitchYaw, true,
		pitchDeg, yawDeg, pitchRateDps, yawRateDps, float64(flags), 0, float64(pair.DeviceID))
}

// SendPitchBodyYaw points the active gimbal using a yaw expressed relative
// to the vehicle's body. Before sending, any running rate timer is stopped
// and the stored pitch/yaw rates are zeroed so a stale rate command can't
// interleave with a one-shot pointing command.
func (c *Controller) SendPitchBodyYaw(pitchDeg, bodyYawDeg float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	if !c.tryGetGimbalControlLocked(pair, record) {
		return nil
	}

	c.stopRateTimerLocked()
	record.setPitchRate(0)
	record.setYawRate(0)

	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock | GimbalManagerFlagYawInVehicleFrame)
	err := c.sendPitchYawCommandLocked(pair, pitchDeg, bodyYawDeg, nanUnset(), nanUnset(), flags)
	if err == nil {
		c.logMessage(c.nowLocked(), fmt.Sprintf("pitch=%.1f bodyYaw=%.1f", pitchDeg, bodyYawDeg))
	}
	return err
}

// SendPitchAbsoluteYaw points the active gimbal using an earth-frame yaw,
// wrapped into (-180,180] before being sent.
func (c *Controller) SendPitchAbsoluteYaw(pitchDeg, absoluteYawDeg float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	if !c.tryGetGimbalControlLocked(pair, record) {
		return nil
	}

	c.stopRateTimerLocked()
	record.setPitchRate(0)
	record.setYawRate(0)

	absoluteYawDeg = shaping.WrapPM180(absoluteYawDeg)

	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock | GimbalManagerFlagYawLock | GimbalManagerFlagYawInEarthFrame)
	err := c.sendPitchYawCommandLocked(pair, pitchDeg, absoluteYawDeg, nanUnset(), nanUnset(), flags)
	if err == nil {
		c.logMessage(c.nowLocked(), fmt.Sprintf("pitch=%.1f absoluteYaw=%.1f", pitchDeg, absoluteYawDeg))
	}
	return err
}

// SendRate issues a one-shot DO_GIMBAL_MANAGER_PITCHYAW rate command using
// the stored pitch/yaw rates, then either (re)arms the 500ms keep-alive
// timer or, if both rates are zero, stops it -- a zero-rate command means
// stop, not "hold the keep-alive running at zero".
func (c *Controller) SendRate(pitchRateDegS, yawRateDegS float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	if !c.tryGetGimbalControlLocked(pair, record) {
		return nil
	}
	record.setPitchRate(pitchRateDegS)
	record.setYawRate(yawRateDegS)
	if err := c.sendRateCommandLocked(pair, record); err != nil {
		return err
	}
	if pitchRateDegS == 0 && yawRateDegS == 0 {
		c.stopRateTimerLocked()
	} else {
		c.startRateTimerLocked()
	}
	return nil
}

// StopRate stops the keep-alive timer and sends a single zero-rate command so
// the gimbal doesn't coast.
func (c *Controller) StopRate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRateTimerLocked()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	record.setPitchRate(0)
	record.setYawRate(0)
	return c.sendRateCommandLocked(pair, record)
}

// sendRateCommandLocked is the DO_GIMBAL_MANAGER_PITCHYAW form of sendRate:
// pitch/yaw are NaN (not used), rates are in degrees/s, matching the
// command's dps parameters directly -- no unit conversion needed here.
func (c *Controller) sendRateCommandLocked(pair GimbalPairId, record *GimbalRecord) error {
	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock)
	if record.YawLock {
		flags |= GimbalManagerFlagYawLock
	}
	return c.sendPitchYawCommandLocked(pair, nanUnset(), nanUnset(), record.PitchRate, record.YawRate, flags)
}

// SendGimbalRate is the message-based alternative to SendRate: rather than a
// DO_GIMBAL_MANAGER_PITCHYAW command, it emits GIMBAL_MANAGER_SET_ATTITUDE
// directly over the primary link, with rates converted to radians/s as the
// message requires. Keep-alive timer management mirrors SendRate.
func (c *Controller) SendGimbalRate(pitchRateDegS, yawRateDegS float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	if !c.tryGetGimbalControlLocked(pair, record) {
		return nil
	}
	record.setPitchRate(pitchRateDegS)
	record.setYawRate(yawRateDegS)

	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock | GimbalManagerFlagYawInVehicleFrame)
	if record.YawLock {
		flags |= GimbalManagerFlagYawLock
	}
	nanQ := shaping.Quaternion{W: math.NaN(), X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	err := c.sendGimbalManagerSetAttitudeLocked(pair, flags, nanQ, math.NaN(),
		shaping.DegToRad(pitchRateDegS), shaping.DegToRad(yawRateDegS))
	if err != nil {
		return err
	}
	if pitchRateDegS == 0 && yawRateDegS == 0 {
		c.stopRateTimerLocked()
	} else {
		c.startRateTimerLocked()
	}
	return nil
}

func (c *Controller) sendGimbalManagerSetAttitudeLocked(pair GimbalPairId, flags uint32, q shaping.Quaternion, rollRate, pitchRate, yawRate float64) error {
	link, ok := c.link.PrimaryLink()
	if !ok {
		return ErrGimbalLinkUnavailable
	}
	msg := GimbalManagerSetAttitude{
		TargetSystem:     c.link.VehicleID(),
		TargetComponent:  pair.ManagerCompID,
		GimbalDeviceID:   pair.DeviceID,
		Flags:            flags,
		Q:                q.Slice(),
		AngularVelocityX: rollRate,
		AngularVelocityY: pitchRate,
		AngularVelocityZ: yawRate,
	}
	return c.link.SendMessageOnLink(link, msg)
}

// SetGimbalRetract toggles the retract flag for the active gimbal.
func (c *Controller) SetGimbalRetract(retract bool) error {
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveGimbal
	}
	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock)
	if record.YawLock {
		flags |= GimbalManagerFlagYawLock
	}
	if retract {
		flags |= GimbalManagerFlagRetract
	}
	record.setDeviceFlags(retract, record.YawLock, record.Neutral)
	c.mu.Unlock()
	return c.SendPitchYawFlags(flags)
}

// SetGimbalYawLock toggles whether outbound yaw is earth-locked (true) or
// vehicle-relative (false) for future pointing/rate commands on this record.
func (c *Controller) SetGimbalYawLock(yawLock bool) error {
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveGimbal
	}
	flags := uint32(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock)
	if yawLock {
		flags |= GimbalManagerFlagYawLock
	}
	record.setDeviceFlags(record.Retracted, yawLock, record.Neutral)
	c.mu.Unlock()
	return c.SendPitchYawFlags(flags)
}

// SendPitchYawFlags re-sends the active gimbal's current pointing angle with
// a new flags word attached -- the mechanism SetGimbalRetract/SetGimbalYawLock
// use to push a flag change without supplying a fresh target angle. The yaw
// value sent depends on whether the new flags request vehicle- or
// earth-frame yaw.
func (c *Controller) SendPitchYawFlags(flags uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		return ErrNoActiveGimbal
	}
	if !c.tryGetGimbalControlLocked(pair, record) {
		return nil
	}
	yawDeg := record.AbsoluteYaw
	if flags&GimbalManagerFlagYawInVehicleFrame != 0 {
		yawDeg = record.BodyYaw
	}
	return c.sendPitchYawCommandLocked(pair, record.AbsolutePitch, yawDeg, nanUnset(), nanUnset(), flags)
}

// GimbalOnScreenControl interprets a normalized on-screen pan/tilt delta
// (panPct, tiltPct in [-1,1]) as an offset from the active gimbal's current
// pose. Click-and-point scales by half the camera's field of view;
// click-and-drag scales by the configured slide speed instead. Dispatch
// goes through SendPitchAbsoluteYaw when the active gimbal is yaw-locked,
// SendPitchBodyYaw otherwise.
func (c *Controller) GimbalOnScreenControl(panPct, tiltPct float64, isDrag bool) error {
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveGimbal
	}

	var panInc, tiltInc float64
	if isDrag {
		panInc = panPct * c.settings.CameraSlideSpeed() * 0.1
		tiltInc = tiltPct * c.settings.CameraSlideSpeed() * 0.1
	} else {
		panInc = panPct * c.settings.CameraHFov() / 2
		tiltInc = tiltPct * c.settings.CameraVFov() / 2
	}

	panTgt := panInc + record.BodyYaw
	tiltTgt := tiltInc + record.AbsolutePitch
	yawLock := record.YawLock
	heading := c.link.HeadingDeg()
	c.mu.Unlock()

	if yawLock {
		return c.SendPitchAbsoluteYaw(tiltTgt, panTgt+heading)
	}
	return c.SendPitchBodyYaw(tiltTgt, panTgt)
}

// CenterGimbal points the active gimbal to body-relative (0,0). Present in
// the original controller (centerGimbal) though dropped by the distilled
// command list.
func (c *Controller) CenterGimbal() error {
	return c.SendPitchBodyYaw(0, 0)
}

// GimbalPitchStart begins a continuous rate command driven by an on-screen
// button (up/down), using JoystickButtonSpeed as the rate magnitude.
func (c *Controller) GimbalPitchStart(up bool) error {
	rate := c.settings.JoystickButtonSpeed()
	if !up {
		rate = -rate
	}
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	yawRate := 0.0
	if ok {
		yawRate = record.YawRate
	}
	c.mu.Unlock()
	return c.SendRate(rate, yawRate)
}

// GimbalPitchStop zeroes the pitch-rate component while leaving yaw rate
// whatever it was, or stops the timer entirely if yaw rate is also zero.
func (c *Controller) GimbalPitchStop() error {
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveGimbal
	}
	yawRate := record.YawRate
	c.mu.Unlock()
	if yawRate == 0 {
		return c.StopRate()
	}
	return c.SendRate(0, yawRate)
}

// GimbalYawStart begins a continuous yaw-rate command driven by an on-screen
// button (left/right).
func (c *Controller) GimbalYawStart(right bool) error {
	rate := c.settings.JoystickButtonSpeed()
	if !right {
		rate = -rate
	}
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	pitchRate := 0.0
	if ok {
		pitchRate = record.PitchRate
	}
	c.mu.Unlock()
	return c.SendRate(pitchRate, rate)
}

// GimbalYawStop mirrors GimbalPitchStop for the yaw axis.
func (c *Controller) GimbalYawStop() error {
	c.mu.Lock()
	_, record, ok := c.activeRecordLocked()
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveGimbal
	}
	pitchRate := record.PitchRate
	c.mu.Unlock()
	if pitchRate == 0 {
		return c.StopRate()
	}
	return c.SendRate(pitchRate, 0)
}
