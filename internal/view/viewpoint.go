// Package view describes where the scene is observed from: a position used
// for distance ordering and an optional frustum for visibility.
package view

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Viewpoint is consumed by the chunk store for queue ordering and
// visibility. Frustum may return nil.
type Viewpoint interface {
	Position() mgl32.Vec3
	Frustum() *Frustum
}

// Point is a viewpoint without a frustum.
type Point mgl32.Vec3

func (p Point) Position() mgl32.Vec3 { return mgl32.Vec3(p) }
func (p Point) Frustum() *Frustum     { return nil }

// Camera is a perspective viewpoint.
type Camera struct {
	Pos         mgl32.Vec3
	Yaw, Pitch  float32 // degrees
	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32
}

func NewCamera(pos mgl32.Vec3, width, height int) *Camera {
	return &Camera{
		Pos:         pos,
		AspectRatio: float32(width) / float32(height),
		FOV:         60.0,
		NearPlane:   0.1,
		FarPlane:    1000.0,
	}
}

func (c *Camera) Position() mgl32.Vec3 { return c.Pos }

// Front is the unit view direction. Yaw 0 looks down -Z.
func (c *Camera) Front() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw - 90))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Pos.Add(c.Front()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) Frustum() *Frustum {
	return NewFrustum(c.ProjectionMatrix().Mul4(c.ViewMatrix()))
}
