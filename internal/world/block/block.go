package block

import "fmt"

// Type - тег типа блока. Набор закрыт: новые типы добавляются только здесь.
type Type uint8

// Константы типов блоков
const (
	Air Type = iota // 0 - пустота

	// Ландшафт
	Grass
	Dirt
	Stone
	Sand
	Gravel
	Clay
	Bedrock
	Snow
	Ice
	PackedIce
	Sandstone
	RedSand
	Mycelium
	Podzol
	Cobblestone
	MossyCobblestone

	// Руды
	CoalOre
	IronOre
	GoldOre
	DiamondOre
	RedstoneOre
	LapisOre
	EmeraldOre

	// Дерево
	OakLog
	OakPlanks
	OakLeaves
	BirchLog
	BirchPlanks
	SpruceLog
	SprucePlanks

	// Строительные
	Glass
	Brick
	StoneBrick
	Obsidian
	Bookshelf
	Quartz
	Prismarine
	Terracotta

	// Растения
	Pumpkin
	Melon
	Cactus

	// Шерсть
	WoolWhite
	WoolRed
	WoolBlue
	WoolGreen
	WoolYellow
	WoolBlack

	// Металлы и прочее
	GoldBlock
	IronBlock
	DiamondBlock
	Glowstone

	typeCount // служебное значение, всегда последнее
)

// Count возвращает количество зарегистрированных типов, включая воздух
func Count() int {
	return int(typeCount)
}

// IsAir возвращает true для пустого блока
func (t Type) IsAir() bool {
	return t == Air
}

// String возвращает отображаемое имя типа из реестра по умолчанию
func (t Type) String() string {
	if props, ok := Default().Lookup(t); ok {
		return props.Name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}
