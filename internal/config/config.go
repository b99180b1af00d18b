package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

func GetConfig() Config {
	cfg := Config{
		ServerCfg: GetServerConfig(),
		GimbalCfg: GetGimbalConfig(),
	}

	log.Printf("app Config: \n%+v\n", cfg)
	return cfg
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Server:    GetStringEnv("SERVER", DefaultServer),
		SeatCount: GetIntEnv("SEATCOUNT", DefaultSeatCount),
	}
}

func GetGimbalConfig() GimbalConfig {
	return GimbalConfig{
		CameraHFov:       GetFloatEnv("CAMERA_HFOV", DefaultCameraHFov),
		CameraVFov:       GetFloatEnv("CAMERA_VFOV", DefaultCameraVFov),
		CameraSlideSpeed: GetFloatEnv("CAMERA_SLIDE_SPEED", DefaultCameraSlideSpeed),

		JoystickButtonSpeed: GetFloatEnv("JOYSTICK_BUTTON_SPEED", DefaultJoystickButtonSpeed),

		JoystickGimbalEnabled:      GetBoolEnv("JOYSTICK_GIMBAL_ENABLED", DefaultJoystickGimbalEnabled),
		JoystickGimbalPitchAxisIdx: GetIntEnv("JOYSTICK_GIMBAL_PITCH_AXIS", DefaultJoystickGimbalPitchAxis),
		JoystickGimbalYawAxisIdx:   GetIntEnv("JOYSTICK_GIMBAL_YAW_AXIS", DefaultJoystickGimbalYawAxis),
		JoystickGimbalDeadband:     GetFloatEnv("JOYSTICK_GIMBAL_DEADBAND", DefaultJoystickGimbalDeadband),
		JoystickGimbalExpo:         GetFloatEnv("JOYSTICK_GIMBAL_EXPO", DefaultJoystickGimbalExpo),
		JoystickGimbalSmoothing:    GetFloatEnv("JOYSTICK_GIMBAL_SMOOTHING", DefaultJoystickGimbalSmoothing),
		JoystickGimbalSendRateHz:   GetIntEnv("JOYSTICK_GIMBAL_SEND_RATE_HZ", DefaultJoystickGimbalSendRateHz),
		JoystickGimbalPitchLimit:   GetFloatEnv("JOYSTICK_GIMBAL_PITCH_LIMIT", DefaultJoystickGimbalPitchLimit),
		JoystickGimbalYawLimit:     GetFloatEnv("JOYSTICK_GIMBAL_YAW_LIMIT", DefaultJoystickGimbalYawLimit),
	}
}

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseInt(strings.Trim(envValue, "\r"), 10, 32)
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return int(value)
		}
	}
}

func GetBoolEnv(env string, defaultValue bool) bool {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseBool(strings.Trim(envValue, "\r"))
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return value
		}
	}
}

func GetStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		return strings.ToLower(strings.Trim(envValue, "\r"))
	}
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseFloat(envValue, 64)
		if err != nil {
			return defaultValue
		}
		return value
	}
}
