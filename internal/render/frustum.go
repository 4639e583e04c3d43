package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Индексы плоскостей пирамиды видимости
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// PlaneCount - число плоскостей пирамиды
const PlaneCount = 6

// Plane - полупространство Normal·p + D >= 0
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance возвращает знаковое расстояние от точки до плоскости
func (p Plane) Distance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

func planeFromRow(x, y, z, w float32) Plane {
	p := Plane{Normal: mgl32.Vec3{x, y, z}, D: w}
	length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if length > 0 {
		p.Normal = p.Normal.Mul(1 / length)
		p.D /= length
	}
	return p
}

// Frustum - шесть плоскостей, извлечённых из матрицы projection*view
type Frustum struct {
	planes [PlaneCount]Plane
}

// ExtractPlanes строит плоскости по строкам объединённой матрицы (метод Gribb/Hartmann).
// mgl32 хранит матрицу по столбцам: элемент (row, col) находится в m[col*4+row].
func (f *Frustum) ExtractPlanes(m mgl32.Mat4) {
	r0 := m.Row(0)
	r1 := m.Row(1)
	r2 := m.Row(2)
	r3 := m.Row(3)

	f.planes[PlaneLeft] = planeFromRow(r3[0]+r0[0], r3[1]+r0[1], r3[2]+r0[2], r3[3]+r0[3])
	f.planes[PlaneRight] = planeFromRow(r3[0]-r0[0], r3[1]-r0[1], r3[2]-r0[2], r3[3]-r0[3])
	f.planes[PlaneBottom] = planeFromRow(r3[0]+r1[0], r3[1]+r1[1], r3[2]+r1[2], r3[3]+r1[3])
	f.planes[PlaneTop] = planeFromRow(r3[0]-r1[0], r3[1]-r1[1], r3[2]-r1[2], r3[3]-r1[3])
	f.planes[PlaneNear] = planeFromRow(r3[0]+r2[0], r3[1]+r2[1], r3[2]+r2[2], r3[3]+r2[3])
	f.planes[PlaneFar] = planeFromRow(r3[0]-r2[0], r3[1]-r2[1], r3[2]-r2[2], r3[3]-r2[3])
}

// Plane возвращает плоскость по индексу
func (f *Frustum) Plane(i int) Plane {
	return f.planes[i]
}

// IsPointInside проверяет, что точка лежит внутри всех шести плоскостей
func (f *Frustum) IsPointInside(point mgl32.Vec3) bool {
	for i := range f.planes {
		if f.planes[i].Distance(point) < 0 {
			return false
		}
	}
	return true
}

// IsSphereInside проверяет пересечение сферы с пирамидой
func (f *Frustum) IsSphereInside(center mgl32.Vec3, radius float32) bool {
	for i := range f.planes {
		if f.planes[i].Distance(center) < -radius {
			return false
		}
	}
	return true
}

// IsAABBInside - консервативный тест бокса.
// Для каждой плоскости берётся вершина, дальше всего выдвинутая вдоль нормали;
// если даже она позади плоскости, бокс снаружи. Частично видимый бокс не отбрасывается.
func (f *Frustum) IsAABBInside(min, max mgl32.Vec3) bool {
	for i := range f.planes {
		p := &f.planes[i]

		vertex := max
		if p.Normal[0] < 0 {
			vertex[0] = min[0]
		}
		if p.Normal[1] < 0 {
			vertex[1] = min[1]
		}
		if p.Normal[2] < 0 {
			vertex[2] = min[2]
		}

		if p.Distance(vertex) < 0 {
			return false
		}
	}
	return true
}
