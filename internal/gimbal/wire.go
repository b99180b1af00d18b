package gimbal

// Message ids and command ids below match the MAVLink common dialect's
// Gimbal Protocol v2 values. Framing/packing/parsing themselves are out of
// scope here -- see link.go -- these constants only identify which message
// or command a call is about.
const (
	MsgIDHeartbeat                  = 0
	MsgIDGimbalManagerInformation   = 280
	MsgIDGimbalManagerStatus        = 281
	MsgIDGimbalManagerSetAttitude   = 282
	MsgIDGimbalDeviceSetAttitude    = 284
	MsgIDGimbalDeviceAttitudeStatus = 285
)

const (
	MAVCmdSetMessageInterval       = 511
	MAVCmdRequestMessage           = 512
	MAVCmdDoGimbalManagerPitchYaw  = 1000
	MAVCmdDoGimbalManagerConfigure = 1001
)

// GIMBAL_MANAGER_FLAGS_* bits, sent on DO_GIMBAL_MANAGER_PITCHYAW and
// GIMBAL_MANAGER_SET_ATTITUDE.
const (
	GimbalManagerFlagRetract                = 1 << 0
	GimbalManagerFlagNeutral                = 1 << 1
	GimbalManagerFlagRollLock                = 1 << 2
	GimbalManagerFlagPitchLock               = 1 << 3
	GimbalManagerFlagYawLock                 = 1 << 4
	GimbalManagerFlagYawInVehicleFrame       = 1 << 5
	GimbalManagerFlagYawInEarthFrame         = 1 << 6
	GimbalManagerFlagAcceptsYawInEarthFrame  = 1 << 7
	GimbalManagerFlagRCExclusive             = 1 << 8
	GimbalManagerFlagRCMixed                 = 1 << 9
)

// GIMBAL_DEVICE_FLAGS_* bits, reported on GIMBAL_DEVICE_ATTITUDE_STATUS.
const (
	GimbalDeviceFlagRetract               = 1 << 0
	GimbalDeviceFlagNeutral               = 1 << 1
	GimbalDeviceFlagRollLock              = 1 << 2
	GimbalDeviceFlagPitchLock             = 1 << 3
	GimbalDeviceFlagYawLock               = 1 << 4
	GimbalDeviceFlagYawInVehicleFrame     = 1 << 5
	GimbalDeviceFlagYawInEarthFrame       = 1 << 6
	GimbalDeviceFlagAcceptsYawInEarthFrame = 1 << 7
)

// SET_MESSAGE_INTERVAL intervals used while probing for GIMBAL_MANAGER_STATUS.
const (
	StatusIntervalDefaultUs = 0
	StatusIntervalSlowUs    = 5_000_000 // 0.2 Hz
)

// Heartbeat carries only the fields this controller cares about: the
// sending component id, used purely to discover potential gimbal managers.
type Heartbeat struct {
	CompID uint8
}

// GimbalManagerInformation is GIMBAL_MANAGER_INFORMATION, decoded.
type GimbalManagerInformation struct {
	CompID          uint8
	DeviceID        uint8
	CapabilityFlags uint32
}

// GimbalManagerStatus is GIMBAL_MANAGER_STATUS, decoded.
type GimbalManagerStatus struct {
	CompID          uint8
	DeviceID        uint8
	PrimarySysID    uint8
	PrimaryCompID   uint8
}

// GimbalDeviceAttitudeStatus is GIMBAL_DEVICE_ATTITUDE_STATUS, decoded. Q is
// the wire quaternion in [w,x,y,z] order.
type GimbalDeviceAttitudeStatus struct {
	CompID        uint8
	DeviceIDField uint8
	Flags         uint32
	Q             [4]float64
}

// WireMessage is any outbound MAVLink message this controller packs. MsgID
// identifies it; the actual encode happens beyond the VehicleLink boundary.
type WireMessage interface {
	MsgID() uint16
}

// GimbalManagerSetAttitude is GIMBAL_MANAGER_SET_ATTITUDE: rates in rad/s.
type GimbalManagerSetAttitude struct {
	TargetSystem    uint8
	TargetComponent uint8
	GimbalDeviceID  uint8
	Flags           uint32
	Q               [4]float64 // NaN when unset
	AngularVelocityX float64   // roll rate, rad/s, NaN when unset
	AngularVelocityY float64   // pitch rate, rad/s
	AngularVelocityZ float64   // yaw rate, rad/s
}

func (GimbalManagerSetAttitude) MsgID() uint16 { return MsgIDGimbalManagerSetAttitude }

// GimbalDeviceSetAttitude is GIMBAL_DEVICE_SET_ATTITUDE: angular velocities unused (NaN).
type GimbalDeviceSetAttitude struct {
	TargetSystem    uint8
	TargetComponent uint8
	Flags           uint32
	Q               [4]float64
	AngularVelocityX float64
	AngularVelocityY float64
	AngularVelocityZ float64
}

func (GimbalDeviceSetAttitude) MsgID() uint16 { return MsgIDGimbalDeviceSetAttitude }
