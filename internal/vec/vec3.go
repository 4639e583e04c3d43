package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int
	Y int
	Z int
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает каждую координату на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Chebyshev возвращает расстояние Чебышёва: максимум модулей разностей по осям.
func (v Vec3) Chebyshev(other Vec3) int {
	return max(abs(v.X-other.X), abs(v.Y-other.Y), abs(v.Z-other.Z))
}

// HorizontalChebyshev то же, что Chebyshev, но только по осям X и Z.
func (v Vec3) HorizontalChebyshev(other Vec3) int {
	return max(abs(v.X-other.X), abs(v.Z-other.Z))
}

// VerticalDistance возвращает |dy|
func (v Vec3) VerticalDistance(other Vec3) int {
	return abs(v.Y - other.Y)
}

// DistanceSquared возвращает квадрат евклидова расстояния
func (v Vec3) DistanceSquared(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// ToFloat преобразует в Vec3Float
func (v Vec3) ToFloat() Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// FloorDiv возвращает покоординатное деление с округлением вниз.
// В отличие от v.X / size корректно работает для отрицательных координат.
func (v Vec3Float) FloorDiv(size int) Vec3 {
	s := float64(size)
	return Vec3{
		X: int(math.Floor(v.X / s)),
		Y: int(math.Floor(v.Y / s)),
		Z: int(math.Floor(v.Z / s)),
	}
}

// DistanceSquared возвращает квадрат расстояния до другой точки
func (v Vec3Float) DistanceSquared(other Vec3Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// FloorDivInt делит с округлением к минус бесконечности
func FloorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod возвращает неотрицательный остаток
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
