package element

import "testing"

func TestAllOrder(t *testing.T) {
	want := []Element{Wood, Fire, Earth, Metal, Water}
	if len(All) != len(want) {
		t.Fatalf("len(All) = %d, want %d", len(All), len(want))
	}
	for i, el := range want {
		if All[i] != el {
			t.Errorf("All[%d] = %s, want %s", i, All[i], el)
		}
	}
}

func TestGenerationCycle(t *testing.T) {
	tests := []struct {
		from Element
		want Element
	}{
		{Wood, Fire},
		{Fire, Earth},
		{Earth, Metal},
		{Metal, Water},
		{Water, Wood},
		{Other, Other},
	}

	for _, tt := range tests {
		if got := tt.from.Generates(); got != tt.want {
			t.Errorf("%s.Generates() = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestDestructionCycle(t *testing.T) {
	tests := []struct {
		from Element
		want Element
	}{
		{Wood, Earth},
		{Fire, Metal},
		{Earth, Water},
		{Metal, Wood},
		{Water, Fire},
		{Other, Other},
	}

	for _, tt := range tests {
		if got := tt.from.Destroys(); got != tt.want {
			t.Errorf("%s.Destroys() = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestGenerationCycleClosed(t *testing.T) {
	// Following the generation cycle from any element visits all five.
	seen := make(map[Element]bool)
	el := Wood
	for i := 0; i < len(All); i++ {
		seen[el] = true
		el = el.Generates()
	}
	if el != Wood {
		t.Errorf("cycle did not return to Wood, ended at %s", el)
	}
	if len(seen) != 5 {
		t.Errorf("cycle visited %d elements, want 5", len(seen))
	}
}

func TestInfo(t *testing.T) {
	for _, el := range All {
		info := el.Info()
		if info.Korean == "" {
			t.Errorf("%s has no korean name", el)
		}
		if len(info.Colors) == 0 {
			t.Errorf("%s has no colors", el)
		}
	}

	if got := Other.Info(); got.Korean != "" {
		t.Errorf("Other.Info().Korean = %q, want empty", got.Korean)
	}
}

func TestValid(t *testing.T) {
	for _, el := range append([]Element{Other}, All...) {
		if !el.Valid() {
			t.Errorf("%s.Valid() = false, want true", el)
		}
	}
	if Element("plasma").Valid() {
		t.Error("invalid element reported as valid")
	}
}
