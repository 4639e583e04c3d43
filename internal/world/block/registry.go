package block

import "sync"

// Registry - каталог свойств блоков.
// Заполняется один раз при создании и дальше только читается,
// поэтому Get можно вызывать из любых горутин без блокировок.
type Registry struct {
	props [typeCount]Properties
	known [typeCount]bool
	atlas Atlas
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default возвращает общий реестр процесса
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(DefaultAtlas())
	})
	return defaultRegistry
}

// NewRegistry строит реестр со стандартным набором блоков
func NewRegistry(atlas Atlas) *Registry {
	r := &Registry{atlas: atlas}
	for t, p := range standardBlocks() {
		r.register(t, p)
	}
	return r
}

func (r *Registry) register(t Type, p Properties) {
	r.props[t] = p
	r.known[t] = true
}

// Lookup возвращает свойства блока и признак того, что тип зарегистрирован
func (r *Registry) Lookup(t Type) (Properties, bool) {
	if int(t) >= len(r.props) || !r.known[t] {
		return Properties{}, false
	}
	return r.props[t], true
}

// Get возвращает свойства блока; неизвестный тип ведёт себя как воздух
func (r *Registry) Get(t Type) Properties {
	if p, ok := r.Lookup(t); ok {
		return p
	}
	return r.props[Air]
}

// IsTransparent - сокращение для Get(t).Transparent
func (r *Registry) IsTransparent(t Type) bool {
	return r.Get(t).Transparent
}

// IsSolid - сокращение для Get(t).Solid
func (r *Registry) IsSolid(t Type) bool {
	return r.Get(t).Solid
}

// Len возвращает количество зарегистрированных типов
func (r *Registry) Len() int {
	n := 0
	for _, ok := range r.known {
		if ok {
			n++
		}
	}
	return n
}

// Atlas возвращает атлас, по которому считаются UV
func (r *Registry) Atlas() Atlas {
	return r.atlas
}

// standardBlocks - таблица блоков. Координаты тайлов соответствуют atlas.png 16x16.
func standardBlocks() map[Type]Properties {
	t := func(x, y int) Tile { return Tile{X: x, Y: y} }

	return map[Type]Properties{
		Air: Uniform("Air", false, true, NoTile),

		Grass:            TopSideBottom("Grass", true, false, t(0, 0), t(3, 0), t(2, 0)),
		Dirt:             Uniform("Dirt", true, false, t(2, 0)),
		Stone:            Uniform("Stone", true, false, t(1, 0)),
		Sand:             Uniform("Sand", true, false, t(2, 1)),
		Gravel:           Uniform("Gravel", true, false, t(3, 1)),
		Clay:             Uniform("Clay", true, false, t(8, 4)),
		Bedrock:          Uniform("Bedrock", true, false, t(1, 1)),
		Snow:             TopSideBottom("Snow", true, false, t(2, 4), t(4, 4), t(2, 0)),
		Ice:              Uniform("Ice", true, true, t(3, 4)),
		PackedIce:        Uniform("Packed Ice", true, false, t(13, 4)),
		Sandstone:        TopSideBottom("Sandstone", true, false, t(0, 11), t(0, 12), t(0, 13)),
		RedSand:          Uniform("Red Sand", true, false, t(1, 11)),
		Mycelium:         TopSideBottom("Mycelium", true, false, t(14, 4), t(13, 4), t(2, 0)),
		Podzol:           TopSideBottom("Podzol", true, false, t(14, 5), t(13, 5), t(2, 0)),
		Cobblestone:      Uniform("Cobblestone", true, false, t(0, 1)),
		MossyCobblestone: Uniform("Mossy Cobblestone", true, false, t(4, 2)),

		CoalOre:     Uniform("Coal Ore", true, false, t(2, 2)),
		IronOre:     Uniform("Iron Ore", true, false, t(1, 2)),
		GoldOre:     Uniform("Gold Ore", true, false, t(0, 2)),
		DiamondOre:  Uniform("Diamond Ore", true, false, t(2, 3)),
		RedstoneOre: Uniform("Redstone Ore", true, false, t(3, 3)),
		LapisOre:    Uniform("Lapis Ore", true, false, t(0, 10)),
		EmeraldOre:  Uniform("Emerald Ore", true, false, t(11, 10)),

		OakLog:       TopSideBottom("Oak Log", true, false, t(5, 1), t(4, 1), t(5, 1)),
		OakPlanks:    Uniform("Oak Planks", true, false, t(4, 0)),
		OakLeaves:    Uniform("Oak Leaves", true, true, t(4, 3)),
		BirchLog:     TopSideBottom("Birch Log", true, false, t(5, 1), t(5, 7), t(5, 1)),
		BirchPlanks:  Uniform("Birch Planks", true, false, t(6, 13)),
		SpruceLog:    TopSideBottom("Spruce Log", true, false, t(5, 1), t(4, 7), t(5, 1)),
		SprucePlanks: Uniform("Spruce Planks", true, false, t(6, 12)),

		Glass:      Uniform("Glass", true, true, t(1, 3)),
		Brick:      Uniform("Brick", true, false, t(7, 0)),
		StoneBrick: Uniform("Stone Brick", true, false, t(6, 3)),
		Obsidian:   Uniform("Obsidian", true, false, t(5, 2)),
		Bookshelf:  TopSideBottom("Bookshelf", true, false, t(4, 0), t(3, 2), t(4, 0)),
		Quartz:     TopSideBottom("Quartz", true, false, t(10, 13), t(10, 12), t(10, 14)),
		Prismarine: Uniform("Prismarine", true, false, t(12, 13)),
		Terracotta: Uniform("Terracotta", true, false, t(8, 5)),

		Pumpkin: Directional("Pumpkin", true, false, t(6, 6), t(7, 7), t(6, 7), t(6, 7), t(6, 7), t(6, 6)),
		Melon:   TopSideBottom("Melon", true, false, t(9, 8), t(8, 8), t(9, 8)),
		Cactus:  Oriented("Cactus", true, false, t(5, 4), t(6, 4), t(6, 4), t(7, 4)),

		WoolWhite:  Uniform("White Wool", true, false, t(0, 4)),
		WoolRed:    Uniform("Red Wool", true, false, t(1, 8)),
		WoolBlue:   Uniform("Blue Wool", true, false, t(1, 11)),
		WoolGreen:  Uniform("Green Wool", true, false, t(1, 9)),
		WoolYellow: Uniform("Yellow Wool", true, false, t(2, 10)),
		WoolBlack:  Uniform("Black Wool", true, false, t(1, 7)),

		GoldBlock:    Uniform("Gold Block", true, false, t(7, 1)),
		IronBlock:    Uniform("Iron Block", true, false, t(6, 1)),
		DiamondBlock: Uniform("Diamond Block", true, false, t(8, 1)),
		Glowstone:    Uniform("Glowstone", true, false, t(9, 6)),
	}
}
