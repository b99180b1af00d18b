package gimbal

// Link is a single transport channel to the vehicle, e.g. a serial or UDP
// connection. Channel identifies it for MAVLink's per-channel packing.
type Link interface {
	Channel() uint8
}

// VehicleLink is the narrow set of vehicle/link operations this controller
// needs. Everything else -- opening links, framing, parsing -- is out of
// scope and lives on the other side of this interface.
type VehicleLink interface {
	// ParametersReady gates all inbound processing: frames arriving before
	// the autopilot's parameter subsystem is ready are dropped.
	ParametersReady() bool
	// HeadingDeg is the vehicle's current yaw, in degrees.
	HeadingDeg() float64
	OurSystemID() uint8
	OurComponentID() uint8
	// VehicleID is the target system id used on outbound frames.
	VehicleID() uint8
	// PrimaryLink returns the current primary link, if any -- it may be
	// absent at any time.
	PrimaryLink() (Link, bool)
	// SendCommand issues a COMMAND_LONG-style command. NaN carries "unset".
	SendCommand(targetCompID uint8, cmdID uint16, showError bool, p1, p2, p3, p4, p5, p6, p7 float64) error
	// SendMessageOnLink sends a raw message over link. Thread-safe, non-blocking.
	SendMessageOnLink(link Link, message WireMessage) error
}

// SettingsSource is the settings collaborator: every value is read on
// demand, never cached by the controller, so live settings changes take
// effect on the next read.
type SettingsSource interface {
	JoystickButtonSpeed() float64
	CameraHFov() float64
	CameraVFov() float64
	CameraSlideSpeed() float64

	JoystickGimbalEnabled() bool
	JoystickGimbalPitchAxisIndex() int
	JoystickGimbalYawAxisIndex() int
	JoystickGimbalDeadband() float64
	JoystickGimbalExpo() float64
	JoystickGimbalSmoothing() float64
	JoystickGimbalSendRateHz() int
	JoystickGimbalPitchLimit() float64
	JoystickGimbalYawLimit() float64
}
