// pkg/core/transform.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Euler holds rotation angles in radians, applied in XYZ order.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform describes the placement of a recorded path relative to the
// world origin, captured at save time from the object hosting the live
// recording overlay.
type Transform struct {
	Position Point3 `json:"position"`
	Rotation Euler  `json:"rotation"`
	Scale    Point3 `json:"scale"`
}

// IdentityTransform returns a transform with no offset, no rotation and
// unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Point3{X: 1, Y: 1, Z: 1}}
}

// Mat4 returns the transform as a column-major 4x4 matrix
// (translate * rotateX * rotateY * rotateZ * scale).
func (t Transform) Mat4() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Position.X, t.Position.Y, t.Position.Z)
	m = m.Mul4(mgl64.HomogRotate3DX(t.Rotation.X))
	m = m.Mul4(mgl64.HomogRotate3DY(t.Rotation.Y))
	m = m.Mul4(mgl64.HomogRotate3DZ(t.Rotation.Z))
	m = m.Mul4(mgl64.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z))
	return m
}

// Vec3 converts a point to an mgl64 vector.
func (p Point3) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// PointFromVec3 converts an mgl64 vector back to a point.
func PointFromVec3(v mgl64.Vec3) Point3 {
	return Point3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// TransformPoint applies a 4x4 matrix to a point as a position
// (w = 1).
func TransformPoint(m mgl64.Mat4, p Point3) Point3 {
	v := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return Point3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// TransformDirection applies a 4x4 matrix to a direction (w = 0), so
// translation is ignored.
func TransformDirection(m mgl64.Mat4, p Point3) Point3 {
	v := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 0})
	return Point3{X: v.X(), Y: v.Y(), Z: v.Z()}
}
