// Package element defines the five-element taxonomy that classified objects
// are collected into, plus the keyword mapping from free-form classifier
// output to an element.
package element

// Element is one of the five Saju elements, or Other when nothing applies.
type Element string

const (
	Wood  Element = "wood"
	Fire  Element = "fire"
	Earth Element = "earth"
	Metal Element = "metal"
	Water Element = "water"
	Other Element = "other"
)

// All lists the collectible elements in canonical order.
// Mapping tie-breaks and UI ordering both follow this order.
var All = []Element{Wood, Fire, Earth, Metal, Water}

// Info holds display metadata for an element.
type Info struct {
	Korean string   `json:"korean"`
	Colors []string `json:"colors"`
}

var infos = map[Element]Info{
	Wood:  {Korean: "목", Colors: []string{"green", "brown"}},
	Fire:  {Korean: "화", Colors: []string{"red", "orange"}},
	Earth: {Korean: "토", Colors: []string{"yellow", "beige"}},
	Metal: {Korean: "금", Colors: []string{"white", "gold"}},
	Water: {Korean: "수", Colors: []string{"blue", "black"}},
}

// Info returns display metadata. Other has none.
func (e Element) Info() Info {
	return infos[e]
}

// Valid reports whether e is one of the six defined values.
func (e Element) Valid() bool {
	switch e {
	case Wood, Fire, Earth, Metal, Water, Other:
		return true
	}
	return false
}

// Generation cycle (상생): each element feeds the next.
var generates = map[Element]Element{
	Wood:  Fire,  // wood feeds fire
	Fire:  Earth, // fire creates earth (ash)
	Earth: Metal, // earth contains metal
	Metal: Water, // metal collects water
	Water: Wood,  // water nourishes wood
}

// Destruction cycle (상극): each element overcomes another.
var destroys = map[Element]Element{
	Wood:  Earth, // wood depletes earth
	Fire:  Metal, // fire melts metal
	Earth: Water, // earth absorbs water
	Metal: Wood,  // metal cuts wood
	Water: Fire,  // water extinguishes fire
}

// Generates returns the element this element feeds in the generation cycle.
// Other generates nothing and returns Other.
func (e Element) Generates() Element {
	if next, ok := generates[e]; ok {
		return next
	}
	return Other
}

// Destroys returns the element this element overcomes in the destruction cycle.
// Other destroys nothing and returns Other.
func (e Element) Destroys() Element {
	if next, ok := destroys[e]; ok {
		return next
	}
	return Other
}
