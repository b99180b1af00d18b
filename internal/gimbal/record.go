package gimbal

// GimbalPairId identifies a remote gimbal by the component id of the
// manager that is responsible for it and the gimbal device id itself.
// DeviceID 0 is never a valid stored key.
type GimbalPairId struct {
	ManagerCompID uint8
	DeviceID      uint8
}

func (p GimbalPairId) valid() bool {
	return p.DeviceID != 0
}

// PotentialGimbalManager is the per-component-id bookkeeping kept before any
// device under that manager is known. An entry is created the first time a
// component id is seen on HEARTBEAT, GIMBAL_MANAGER_INFORMATION or
// GIMBAL_MANAGER_STATUS, and is marked once GIMBAL_MANAGER_INFORMATION
// arrives from that component.
type PotentialGimbalManager struct {
	ReceivedManagerInformation bool
	RequestInfoRetries         uint8
}

func newPotentialGimbalManager() *PotentialGimbalManager {
	return &PotentialGimbalManager{RequestInfoRetries: initialRetries}
}

const initialRetries = 5

// GimbalRecord is the per-pair discovery and control state for one remote
// gimbal. Angles are stored in degrees, wrapped to (-180,180]; wire unit
// conversions happen only at the boundary in commands.go, discovery.go and
// joystick.go.
//
// GimbalRecord is a plain value object: every exported field is safe to read
// directly, and every mutation goes through a setter here so the owning
// controller can be told a field changed (onChange), mirroring the "setters
// emit change notifications" requirement without needing its own lock --
// callers are expected to hold the controller's lock while mutating.
type GimbalRecord struct {
	// Identity, adopted (not necessarily from the map key) the first time
	// each message type reports it; see adoptDeviceID/adoptManagerCompID.
	ManagerCompID   uint8
	DeviceID        uint8
	CapabilityFlags uint32

	ReceivedManagerInformation   bool
	ReceivedManagerStatus        bool
	ReceivedDeviceAttitudeStatus bool
	IsComplete                   bool

	RequestInfoRetries     uint8
	RequestStatusRetries   uint8
	RequestAttitudeRetries uint8

	AbsoluteRoll  float64
	AbsolutePitch float64
	AbsoluteYaw   float64
	BodyYaw       float64

	Retracted bool
	YawLock   bool
	Neutral   bool

	HaveControl       bool
	OthersHaveControl bool

	PitchRate float64
	YawRate   float64

	pair     GimbalPairId
	onChange func(GimbalPairId)
}

func newGimbalRecord(pair GimbalPairId, onChange func(GimbalPairId)) *GimbalRecord {
	return &GimbalRecord{
		RequestInfoRetries:     initialRetries,
		RequestStatusRetries:   initialRetries,
		RequestAttitudeRetries: initialRetries,
		pair:                   pair,
		onChange:               onChange,
	}
}

func (r *GimbalRecord) changed() {
	if r.onChange != nil {
		r.onChange(r.pair)
	}
}

// adoptManagerCompID sets ManagerCompID the first time it's reported and
// logs (without overwriting) any later disagreement -- first-writer-wins.
func (r *GimbalRecord) adoptManagerCompID(compID uint8) {
	if r.ManagerCompID == 0 {
		r.ManagerCompID = compID
		r.changed()
	} else if r.ManagerCompID != compID {
		logConflict("manager_compid", r.ManagerCompID, compID)
	}
}

func (r *GimbalRecord) adoptDeviceID(deviceID uint8) {
	if r.DeviceID == 0 {
		r.DeviceID = deviceID
		r.changed()
	} else if r.DeviceID != deviceID {
		logConflict("device_id", r.DeviceID, deviceID)
	}
}

func (r *GimbalRecord) setCapabilityFlags(v uint32) {
	if r.CapabilityFlags != v {
		r.CapabilityFlags = v
		r.changed()
	}
}

func (r *GimbalRecord) setReceivedManagerInformation() {
	if !r.ReceivedManagerInformation {
		r.ReceivedManagerInformation = true
		r.changed()
	}
}

func (r *GimbalRecord) setReceivedManagerStatus() {
	if !r.ReceivedManagerStatus {
		r.ReceivedManagerStatus = true
		r.changed()
	}
}

func (r *GimbalRecord) setReceivedDeviceAttitudeStatus() {
	if !r.ReceivedDeviceAttitudeStatus {
		r.ReceivedDeviceAttitudeStatus = true
		r.changed()
	}
}

// setComplete is monotonic: once true, it never clears.
func (r *GimbalRecord) setComplete() {
	if !r.IsComplete {
		r.IsComplete = true
		r.changed()
	}
}

func (r *GimbalRecord) setPose(roll, pitch, absoluteYaw, bodyYaw float64) {
	if r.AbsoluteRoll != roll || r.AbsolutePitch != pitch || r.AbsoluteYaw != absoluteYaw || r.BodyYaw != bodyYaw {
		r.AbsoluteRoll, r.AbsolutePitch, r.AbsoluteYaw, r.BodyYaw = roll, pitch, absoluteYaw, bodyYaw
		r.changed()
	}
}

func (r *GimbalRecord) setDeviceFlags(retracted, yawLock, neutral bool) {
	if r.Retracted != retracted || r.YawLock != yawLock || r.Neutral != neutral {
		r.Retracted, r.YawLock, r.Neutral = retracted, yawLock, neutral
		r.changed()
	}
}

func (r *GimbalRecord) setControl(haveControl, othersHaveControl bool) {
	if r.HaveControl != haveControl || r.OthersHaveControl != othersHaveControl {
		r.HaveControl, r.OthersHaveControl = haveControl, othersHaveControl
		r.changed()
	}
}

func (r *GimbalRecord) setAbsolutePitch(v float64) {
	if r.AbsolutePitch != v {
		r.AbsolutePitch = v
		r.changed()
	}
}

func (r *GimbalRecord) setPitchRate(v float64) {
	if r.PitchRate != v {
		r.PitchRate = v
		r.changed()
	}
}

func (r *GimbalRecord) setYawRate(v float64) {
	if r.YawRate != v {
		r.YawRate = v
		r.changed()
	}
}
