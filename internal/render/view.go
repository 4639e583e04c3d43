package render

import "github.com/go-gl/mathgl/mgl32"

// ViewParams - входные данные кадра для отсечения
type ViewParams struct {
	Position   mgl32.Vec3
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// ViewProjection возвращает projection*view
func (v ViewParams) ViewProjection() mgl32.Mat4 {
	return v.Projection.Mul4(v.View)
}

// NewPerspective строит перспективную проекцию; fov задаётся в градусах
func NewPerspective(fovDeg, aspect, near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(fovDeg), aspect, near, far)
}

// LookAt строит ViewParams для камеры в eye, смотрящей вдоль forward
func LookAt(eye, forward mgl32.Vec3, projection mgl32.Mat4) ViewParams {
	return ViewParams{
		Position:   eye,
		View:       mgl32.LookAtV(eye, eye.Add(forward), mgl32.Vec3{0, 1, 0}),
		Projection: projection,
	}
}
