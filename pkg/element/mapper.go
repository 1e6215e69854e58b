package element

import "strings"

// keywords maps each element to the classifier vocabulary that selects it.
// The tables follow the vision model's labeling guide: water covers liquid
// water and its containers, "land" style terms (stone, ceramic, glass,
// concrete, soil) map to Earth, wood covers trees, furniture, paper and
// plant material, metal covers utensils, vehicles and machinery.
var keywords = map[Element][]string{
	Wood: {
		"wood", "tree", "plant", "forest", "paper", "cardboard",
		"leaf", "branch", "bamboo", "flower", "grass", "timber",
		"furniture", "table", "chair", "bench", "shelf",
	},
	Fire: {
		"fire", "flame", "burn", "candle", "torch", "lantern",
		"campfire", "ember", "blaze", "stove",
	},
	Earth: {
		"earth", "land", "soil", "stone", "rock", "sand", "ceramic",
		"glass", "concrete", "clay", "brick", "pottery", "mountain",
		"dirt", "gravel", "cement", "marble", "boulder", "cliff", "vase",
	},
	Metal: {
		"metal", "steel", "iron", "aluminum", "copper", "silver", "gold",
		"utensil", "fork", "knife", "spoon", "machine", "vehicle", "car",
		"bicycle", "motorcycle", "airplane", "train", "engine", "coin",
		"blade", "scissors", "refrigerator", "tin", "chrome",
	},
	Water: {
		"water", "rain", "river", "ocean", "lake", "bottle", "liquid",
		"drink", "puddle", "waterfall", "snow", "stream",
	},
}

// FromLabel maps free-form classifier output to an Element. It is total and
// deterministic: unmatched text (including "uncertain" and "") yields Other.
// Matching is a case-insensitive substring scan; when keywords of several
// elements appear, the element whose keyword occurs earliest in the text
// wins, and position ties resolve in the order of All (so "cardboard" is
// Wood even though it contains "car").
func FromLabel(text string) Element {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Other
	}

	best := Other
	bestPos := -1
	for _, el := range All {
		for _, kw := range keywords[el] {
			pos := strings.Index(t, kw)
			if pos < 0 {
				continue
			}
			if bestPos == -1 || pos < bestPos {
				best = el
				bestPos = pos
			}
		}
	}
	return best
}

// Parse interprets a single-token classifier answer, accepting both element
// names and the vision model's "land" alias for Earth. Unlike FromLabel it
// reports whether the token was recognized at all.
func Parse(token string) (Element, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "wood":
		return Wood, true
	case "fire":
		return Fire, true
	case "earth", "land":
		return Earth, true
	case "metal":
		return Metal, true
	case "water":
		return Water, true
	}
	return Other, false
}
