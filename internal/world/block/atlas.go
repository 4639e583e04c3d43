package block

// Atlas переводит ячейку атласа в UV-координаты
type Atlas struct {
	TilesPerRow int
}

// DefaultAtlas - атлас 256px с тайлами по 16px
func DefaultAtlas() Atlas {
	return NewAtlas(256, 16)
}

// NewAtlas создаёт атлас по размеру текстуры и размеру тайла в пикселях
func NewAtlas(atlasSizePx, tileSizePx int) Atlas {
	if tileSizePx <= 0 || atlasSizePx < tileSizePx {
		return Atlas{TilesPerRow: 1}
	}
	return Atlas{TilesPerRow: atlasSizePx / tileSizePx}
}

// TileSize возвращает размер тайла в UV-единицах
func (a Atlas) TileSize() float32 {
	return 1.0 / float32(a.TilesPerRow)
}

// UV возвращает (u0, v0) - левый нижний угол тайла и (u1, v1) - правый верхний.
// Ось V перевёрнута: строка 0 атласа находится вверху текстуры.
func (a Atlas) UV(tile Tile) (u0, v0, u1, v1 float32) {
	size := a.TileSize()
	u0 = float32(tile.X) * size
	v0 = 1.0 - float32(tile.Y+1)*size
	return u0, v0, u0 + size, v0 + size
}
