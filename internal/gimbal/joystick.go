package gimbal

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Speshl/gimbal_client/internal/shaping"
)

const joystickSendInterval = 50 * time.Millisecond // fallback if settings report 0Hz

// ProcessJoystickGimbalInput is the producer half of the joystick pipeline:
// it must not block and must not touch record state directly, so callers
// driving a device poll loop never stall behind the controller's lock. It
// only enqueues the latest raw sample; Run's consumer does the shaping.
func (c *Controller) ProcessJoystickGimbalInput(axisValues []float64) {
	if !c.settings.JoystickGimbalEnabled() {
		return
	}
	sample := make([]float64, len(axisValues))
	copy(sample, axisValues)
	select {
	case c.joystickSamples <- sample:
	default:
		// queue full: drop, latest-wins is approximated by the next sample.
	}
}

// handleJoystickSample is the consumer half, run from Controller.Run. It
// applies deadband and expo shaping to the configured pitch/yaw axes, stores
// the latest processed sample (overwriting any unsent one -- this is a
// latest-wins control, not a queue), and arms the self-rescheduling send
// timer the first time the stick leaves center. Smoothing and the stop
// decision both happen in the send timer itself, not here.
func (c *Controller) handleJoystickSample(axisValues []float64) {
	pitchIdx := c.settings.JoystickGimbalPitchAxisIndex()
	yawIdx := c.settings.JoystickGimbalYawAxisIndex()
	if pitchIdx < 0 || pitchIdx >= len(axisValues) || yawIdx < 0 || yawIdx >= len(axisValues) {
		return
	}

	deadband := c.settings.JoystickGimbalDeadband()
	expo := c.settings.JoystickGimbalExpo()

	pitchRaw := shaping.Expo(shaping.Deadband(axisValues[pitchIdx], deadband), expo)
	yawRaw := shaping.Expo(shaping.Deadband(axisValues[yawIdx], deadband), expo)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.joystickPitchInput = pitchRaw
	c.joystickYawInput = yawRaw

	if (absFloat(pitchRaw) > joystickActiveThreshold || absFloat(yawRaw) > joystickActiveThreshold) && c.joystickSendTimer == nil {
		c.joystickActive = true
		c.startJoystickSendTimerLocked()
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Controller) joystickSendPeriod() time.Duration {
	hz := c.settings.JoystickGimbalSendRateHz()
	if hz <= 0 {
		return joystickSendInterval
	}
	return time.Second / time.Duration(hz)
}

func (c *Controller) startJoystickSendTimerLocked() {
	c.stopJoystickSendTimerLocked()
	c.joystickSendTimer = time.AfterFunc(c.joystickSendPeriod(), c.joystickSendTimerFired)
}

func (c *Controller) stopJoystickSendTimerLocked() {
	if c.joystickSendTimer != nil {
		c.joystickSendTimer.Stop()
		c.joystickSendTimer = nil
	}
}

// joystickSendTimerFired is the sender: it smooths the latest processed
// sample with an EMA, checks the stop condition (both the raw input and the
// smoothed value must have decayed below threshold -- one extra tick after
// stick release is expected while the EMA settles), and otherwise packs the
// smoothed pitch/yaw into a quaternion and emits GIMBAL_DEVICE_SET_ATTITUDE
// directly on the primary link. Pitch carries a sign inversion (stick up
// means pitch down) that yaw does not.
func (c *Controller) joystickSendTimerFired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.joystickSendTimer == nil {
		return
	}

	alpha := c.settings.JoystickGimbalSmoothing()
	c.joystickSmoothedPitch = shaping.EMA(c.joystickSmoothedPitch, c.joystickPitchInput, alpha)
	c.joystickSmoothedYaw = shaping.EMA(c.joystickSmoothedYaw, c.joystickYawInput, alpha)

	rawQuiet := absFloat(c.joystickPitchInput) <= joystickActiveThreshold && absFloat(c.joystickYawInput) <= joystickActiveThreshold
	smoothedQuiet := absFloat(c.joystickSmoothedPitch) <= joystickActiveThreshold && absFloat(c.joystickSmoothedYaw) <= joystickActiveThreshold
	if rawQuiet && smoothedQuiet {
		c.joystickActive = false
		c.joystickSendTimer = nil
		log.Println("gimbal: joystick stick centered, stopping send timer")
		return
	}

	period := c.joystickSendPeriod()
	pair, record, ok := c.activeRecordLocked()
	link, linkOK := c.link.PrimaryLink()
	if !ok || !record.HaveControl || !linkOK {
		log.Printf("gimbal: joystick send skipped: activeGimbal=%v link=%v\n", ok, linkOK)
		c.joystickSendTimer = time.AfterFunc(period, c.joystickSendTimerFired)
		return
	}

	pitchDeg := -c.joystickSmoothedPitch * c.settings.JoystickGimbalPitchLimit()
	yawDeg := c.joystickSmoothedYaw * c.settings.JoystickGimbalYawLimit()

	q := shaping.EulerToQuat(0, shaping.DegToRad(pitchDeg), shaping.DegToRad(yawDeg))
	msg := GimbalDeviceSetAttitude{
		TargetSystem:     c.link.VehicleID(),
		TargetComponent:  pair.ManagerCompID,
		Flags:            uint32(GimbalDeviceFlagRollLock | GimbalDeviceFlagPitchLock | GimbalDeviceFlagYawInVehicleFrame),
		Q:                q.Slice(),
		AngularVelocityX: math.NaN(),
		AngularVelocityY: math.NaN(),
		AngularVelocityZ: math.NaN(),
	}
	if err := c.link.SendMessageOnLink(link, msg); err != nil {
		log.Printf("gimbal: joystick attitude send failed: %v\n", err)
	} else {
		c.logMessage(c.nowLocked(), fmt.Sprintf("joystick pitch=%.1f yaw=%.1f", pitchDeg, yawDeg))
	}

	c.joystickSendTimer = time.AfterFunc(period, c.joystickSendTimerFired)
}
