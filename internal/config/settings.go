package config

// GimbalSettings adapts a GimbalConfig into the gimbal package's
// SettingsSource interface. Values are read from the embedded config
// value on every call, so a config reload only needs to replace the
// embedded struct to take effect.
type GimbalSettings struct {
	Cfg GimbalConfig
}

func (s GimbalSettings) JoystickButtonSpeed() float64     { return s.Cfg.JoystickButtonSpeed }
func (s GimbalSettings) CameraHFov() float64               { return s.Cfg.CameraHFov }
func (s GimbalSettings) CameraVFov() float64               { return s.Cfg.CameraVFov }
func (s GimbalSettings) CameraSlideSpeed() float64         { return s.Cfg.CameraSlideSpeed }
func (s GimbalSettings) JoystickGimbalEnabled() bool       { return s.Cfg.JoystickGimbalEnabled }
func (s GimbalSettings) JoystickGimbalPitchAxisIndex() int { return s.Cfg.JoystickGimbalPitchAxisIdx }
func (s GimbalSettings) JoystickGimbalYawAxisIndex() int   { return s.Cfg.JoystickGimbalYawAxisIdx }
func (s GimbalSettings) JoystickGimbalDeadband() float64   { return s.Cfg.JoystickGimbalDeadband }
func (s GimbalSettings) JoystickGimbalExpo() float64       { return s.Cfg.JoystickGimbalExpo }
func (s GimbalSettings) JoystickGimbalSmoothing() float64  { return s.Cfg.JoystickGimbalSmoothing }
func (s GimbalSettings) JoystickGimbalSendRateHz() int     { return s.Cfg.JoystickGimbalSendRateHz }
func (s GimbalSettings) JoystickGimbalPitchLimit() float64 { return s.Cfg.JoystickGimbalPitchLimit }
func (s GimbalSettings) JoystickGimbalYawLimit() float64   { return s.Cfg.JoystickGimbalYawLimit }
