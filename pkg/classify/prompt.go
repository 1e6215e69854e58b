package classify

// The two stock prompts trade robustness against parse simplicity. The
// word prompt yields a single token that maps directly onto an element;
// the descriptive prompt survives chattier models because the element
// mapper scans the whole answer for material keywords.

// PromptWord forces a one-word answer from the element vocabulary.
const PromptWord = "What is the main object in this image? " +
	"Answer with ONLY ONE WORD from this list: " +
	"water (for liquid, bottles, rain, rivers, ocean), " +
	"land (for stone, rock, ceramic, glass, concrete, earth, soil, sand), " +
	"fire (for flames, candles, torches), " +
	"wood (for furniture, trees, paper, cardboard, plants), " +
	"metal (for utensils, vehicles, machinery). " +
	"If you cannot tell, answer uncertain."

// PromptDescriptive asks for one short sentence naming the main object and
// its material.
const PromptDescriptive = "Look at the main object in this image. " +
	"In one short sentence, say what the object is and what material it is " +
	"made of, naming the material explicitly (for example wood, metal, " +
	"stone, glass, water, fire). If you cannot tell, answer uncertain."

// DefaultPrompt is used whenever a caller passes an empty prompt.
const DefaultPrompt = PromptDescriptive

// promptOrDefault substitutes the default for empty prompts.
func promptOrDefault(prompt string) string {
	if prompt == "" {
		return DefaultPrompt
	}
	return prompt
}
