package inertial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// StandardGravity is the magnitude added back on the world Z axis.
const StandardGravity = 9.81

var (
	xAxis = r3.Vec{X: 1}
	yAxis = r3.Vec{Y: 1}
	zAxis = r3.Vec{Z: 1}
)

// Orientation is the attitude of the body as extrinsic x-y-z Euler angles in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Sample is one body frame acceleration reading in m/s².
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	Accel     r3.Vec  `json:"accel"`
}

// ToWorldFrame applies the inverse of the orientation's rotation to a body
// frame acceleration and adds gravity back on Z.
//
// The attitude rotation is R = Rz(yaw)·Ry(pitch)·Rx(roll); its inverse undoes
// yaw first, then pitch, then roll.
func ToWorldFrame(accel r3.Vec, o Orientation, gravity float64) r3.Vec {
	v := r3.NewRotation(-radians(o.Yaw), zAxis).Rotate(accel)
	v = r3.NewRotation(-radians(o.Pitch), yAxis).Rotate(v)
	v = r3.NewRotation(-radians(o.Roll), xAxis).Rotate(v)
	v.Z += gravity
	return v
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
