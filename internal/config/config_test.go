package config

import "testing"

func TestGetGimbalConfigDefaults(t *testing.T) {
	cfg := GetGimbalConfig()
	if cfg.CameraHFov != DefaultCameraHFov {
		t.Fatalf("expected default CameraHFov %v, got %v", DefaultCameraHFov, cfg.CameraHFov)
	}
	if !cfg.JoystickGimbalEnabled {
		t.Fatalf("expected joystick gimbal enabled by default")
	}
	if cfg.JoystickGimbalSendRateHz != DefaultJoystickGimbalSendRateHz {
		t.Fatalf("expected default send rate %d, got %d", DefaultJoystickGimbalSendRateHz, cfg.JoystickGimbalSendRateHz)
	}
}

func TestGetIntEnvUsesPrefixAndFallsBackOnParseError(t *testing.T) {
	t.Setenv("GORRC_SEATCOUNT", "not-a-number")
	if got := GetIntEnv("SEATCOUNT", 7); got != 7 {
		t.Fatalf("expected fallback 7 on parse error, got %d", got)
	}

	t.Setenv("GORRC_SEATCOUNT", "3")
	if got := GetIntEnv("SEATCOUNT", 7); got != 3 {
		t.Fatalf("expected 3 from environment, got %d", got)
	}
}

func TestGimbalSettingsAdapter(t *testing.T) {
	settings := GimbalSettings{Cfg: GimbalConfig{JoystickGimbalPitchLimit: 45, JoystickGimbalYawLimit: 90}}
	if settings.JoystickGimbalPitchLimit() != 45 {
		t.Fatalf("expected pitch limit passthrough, got %v", settings.JoystickGimbalPitchLimit())
	}
	if settings.JoystickGimbalYawLimit() != 90 {
		t.Fatalf("expected yaw limit passthrough, got %v", settings.JoystickGimbalYawLimit())
	}
}
