package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrustum() *Frustum {
	view := LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, NewPerspective(90, 1, 0.1, 100))
	f := &Frustum{}
	f.ExtractPlanes(view.ViewProjection())
	return f
}

func TestFrustumPlanesNormalized(t *testing.T) {
	f := testFrustum()
	for i := 0; i < PlaneCount; i++ {
		assert.InDelta(t, 1.0, f.Plane(i).Normal.Len(), 1e-4, "нормаль плоскости %d должна быть единичной", i)
	}
}

func TestFrustumPoints(t *testing.T) {
	f := testFrustum()

	assert.True(t, f.IsPointInside(mgl32.Vec3{0, 0, -10}), "точка перед камерой видима")
	assert.False(t, f.IsPointInside(mgl32.Vec3{0, 0, 10}), "точка за камерой не видима")
	assert.False(t, f.IsPointInside(mgl32.Vec3{0, 0, -200}), "точка за дальней плоскостью не видима")
	assert.False(t, f.IsPointInside(mgl32.Vec3{50, 0, -10}), "точка сбоку не видима")
}

func TestFrustumSphere(t *testing.T) {
	f := testFrustum()

	assert.False(t, f.IsSphereInside(mgl32.Vec3{0, 0, 5}, 1), "малая сфера за камерой отброшена")
	assert.True(t, f.IsSphereInside(mgl32.Vec3{0, 0, 5}, 10), "большая сфера пересекает пирамиду")
	assert.True(t, f.IsSphereInside(mgl32.Vec3{0, 0, -50}, 1))
}

func TestFrustumAABB(t *testing.T) {
	f := testFrustum()

	assert.True(t, f.IsAABBInside(mgl32.Vec3{-1, -1, -11}, mgl32.Vec3{1, 1, -9}), "бокс внутри")
	assert.True(t, f.IsAABBInside(mgl32.Vec3{-5, -5, -20}, mgl32.Vec3{5, 5, 20}), "бокс, пересекающий камеру, принят")
	assert.True(t, f.IsAABBInside(mgl32.Vec3{-1, -1, -120}, mgl32.Vec3{1, 1, -90}), "бокс, пересекающий дальнюю плоскость, принят")
	assert.False(t, f.IsAABBInside(mgl32.Vec3{-1, -1, -300}, mgl32.Vec3{1, 1, -250}), "бокс за дальней плоскостью отброшен")
	assert.False(t, f.IsAABBInside(mgl32.Vec3{-1, -1, 5}, mgl32.Vec3{1, 1, 10}), "бокс за камерой отброшен")
}

func TestMemoryUploader(t *testing.T) {
	u := NewMemoryUploader(3)

	h, err := u.Upload([]float32{0, 0, 0, 1, 0, 0, 1, 1, 0}, []uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, h.IndexCount)
	assert.Len(t, h.Buffers, 2)
	assert.Equal(t, 1, u.LiveCount())

	vertices, indices, ok := u.Data(h)
	require.True(t, ok)
	assert.Len(t, vertices, 9)
	assert.Equal(t, []uint32{0, 1, 2}, indices)

	_, err = u.Upload([]float32{0, 0, 0}, []uint32{1})
	assert.Error(t, err, "индекс за пределами вершин")

	require.NoError(t, u.Release(h))
	assert.ErrorIs(t, u.Release(h), ErrUnknownMesh, "повторное освобождение - ошибка")
	assert.Equal(t, 0, u.LiveCount())

	u.FailNextUpload(assert.AnError)
	_, err = u.Upload(nil, nil)
	assert.ErrorIs(t, err, assert.AnError)
	_, err = u.Upload(nil, nil)
	assert.NoError(t, err, "сбой срабатывает один раз")

	uploads, releases := u.Counts()
	assert.Equal(t, 2, uploads)
	assert.Equal(t, 1, releases)
}
