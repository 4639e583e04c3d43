package block

// Face - одна из шести граней куба
type Face uint8

const (
	FaceTop    Face = iota // +y
	FaceBottom             // -y
	FaceFront              // +z
	FaceBack               // -z
	FaceLeft               // -x
	FaceRight              // +x
)

// FaceCount - количество граней
const FaceCount = 6

var faceNames = [FaceCount]string{"top", "bottom", "front", "back", "left", "right"}

func (f Face) String() string {
	if int(f) < FaceCount {
		return faceNames[f]
	}
	return "unknown"
}

// Tile - координаты ячейки в текстурном атласе
type Tile struct {
	X, Y int
}

// NoTile используется для воздуха
var NoTile = Tile{X: -1, Y: -1}

// Properties - неизменяемое описание физических свойств блока
type Properties struct {
	Name        string
	Solid       bool
	Transparent bool
	Faces       [FaceCount]Tile
}

// Texture возвращает ячейку атласа для указанной грани
func (p Properties) Texture(f Face) Tile {
	return p.Faces[f]
}

// Uniform описывает блок с одной текстурой на всех гранях
func Uniform(name string, solid, transparent bool, tile Tile) Properties {
	return TopSideBottom(name, solid, transparent, tile, tile, tile)
}

// TopSideBottom описывает блок с отдельными верхом, боками и низом
func TopSideBottom(name string, solid, transparent bool, top, side, bottom Tile) Properties {
	return Properties{
		Name:        name,
		Solid:       solid,
		Transparent: transparent,
		Faces:       [FaceCount]Tile{top, bottom, side, side, side, side},
	}
}

// Oriented описывает блок, у которого фронт/тыл и лево/право различаются
func Oriented(name string, solid, transparent bool, top, frontBack, leftRight, bottom Tile) Properties {
	return Properties{
		Name:        name,
		Solid:       solid,
		Transparent: transparent,
		Faces:       [FaceCount]Tile{top, bottom, frontBack, frontBack, leftRight, leftRight},
	}
}

// Directional описывает блок с шестью разными гранями
func Directional(name string, solid, transparent bool, top, front, back, left, right, bottom Tile) Properties {
	return Properties{
		Name:        name,
		Solid:       solid,
		Transparent: transparent,
		Faces:       [FaceCount]Tile{top, bottom, front, back, left, right},
	}
}
