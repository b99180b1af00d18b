package config

const (
	AppEnvBase = "GORRC_"

	DefaultServer   = "127.0.0.1:8181"
	DefaultSeatCount = 1

	DefaultCameraHFov          = 60.0
	DefaultCameraVFov          = 40.0
	DefaultCameraSlideSpeed    = 5.0
	DefaultJoystickButtonSpeed = 10.0

	DefaultJoystickGimbalEnabled    = true
	DefaultJoystickGimbalPitchAxis  = 1
	DefaultJoystickGimbalYawAxis    = 0
	DefaultJoystickGimbalDeadband   = 0.05
	DefaultJoystickGimbalExpo       = 0.4
	DefaultJoystickGimbalSmoothing  = 0.5
	DefaultJoystickGimbalSendRateHz = 20
	DefaultJoystickGimbalPitchLimit = 45.0
	DefaultJoystickGimbalYawLimit   = 90.0
)

type Config struct {
	ServerCfg ServerConfig
	GimbalCfg GimbalConfig
}

// ServerConfig is the connection-level config this client needs to find
// the vehicle link; link construction itself is out of scope.
type ServerConfig struct {
	Server    string
	SeatCount int
}

// GimbalConfig mirrors a gimbal manager client's settings table: the camera
// framing used by on-screen drag control, and the joystick shaping
// pipeline's tunables. Every field is read live through the SettingsSource
// interface rather than cached, so editing the environment and restarting
// takes effect without touching the controller.
type GimbalConfig struct {
	CameraHFov       float64
	CameraVFov       float64
	CameraSlideSpeed float64

	JoystickButtonSpeed float64

	JoystickGimbalEnabled      bool
	JoystickGimbalPitchAxisIdx int
	JoystickGimbalYawAxisIdx   int
	JoystickGimbalDeadband     float64
	JoystickGimbalExpo         float64
	JoystickGimbalSmoothing    float64
	JoystickGimbalSendRateHz   int
	JoystickGimbalPitchLimit   float64
	JoystickGimbalYawLimit     float64
}
