// Package shaping holds the pure, stateless math used to turn raw joystick
// axis samples into a gimbal attitude: deadband rejection, expo curves,
// exponential smoothing, and euler-to-quaternion packing.
package shaping

import "math"

// Quaternion is a unit attitude quaternion in w,x,y,z order, matching the
// wire order GIMBAL_DEVICE_SET_ATTITUDE/GIMBAL_MANAGER_SET_ATTITUDE expect.
type Quaternion struct {
	W, X, Y, Z float64
}

// Slice returns the quaternion as [w,x,y,z], the order callers pack onto the wire.
func (q Quaternion) Slice() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

// Deadband zeroes out values within d of center and rescales the remainder
// so the output still spans the full [-1,1] range just outside the deadzone.
func Deadband(v, d float64) float64 {
	if math.Abs(v) <= d {
		return 0
	}
	return math.Copysign((math.Abs(v)-d)/(1-d), v)
}

// Expo blends a linear response with a cubic one, reducing sensitivity near
// center while preserving full-scale output at the extremes.
func Expo(v, e float64) float64 {
	return (1-e)*v + e*v*v*v
}

// EMA is one step of an exponential moving average: y <- alpha*x + (1-alpha)*y.
func EMA(prev, x, alpha float64) float64 {
	return alpha*x + (1-alpha)*prev
}

// EulerToQuat converts roll/pitch/yaw (radians, ZYX/Tait-Bryan order) to a
// unit quaternion.
func EulerToQuat(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// QuatToEuler decodes a w,x,y,z unit quaternion into roll/pitch/yaw (radians,
// ZYX/Tait-Bryan order), the inverse of EulerToQuat.
func QuatToEuler(q Quaternion) (roll, pitch, yaw float64) {
	roll = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))

	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}

	yaw = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return roll, pitch, yaw
}

// WrapPM180 normalizes deg into (-180, 180], wrapping as many full turns as needed.
func WrapPM180(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
