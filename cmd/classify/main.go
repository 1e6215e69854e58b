// classify: One-shot element classification for an image file
//
// Runs the same normalize / classify / map chain the coordinator runs
// per entity, against a single image, and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-fortuna/internal/config"
	"github.com/teslashibe/go-fortuna/pkg/classify"
	"github.com/teslashibe/go-fortuna/pkg/element"
	"github.com/teslashibe/go-fortuna/pkg/frame"
)

var (
	backend = flag.String("classifier", config.ClassifierBackend(), "classifier backend: gemini, openai, cloudvision, mock")
	prompt  = flag.String("prompt", "", "override the backend's default prompt")
	timeout = flag.Duration("timeout", 30*time.Second, "classification timeout")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: classify [flags] <image.jpg>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("🔮 Fortuna Classify")
	fmt.Println("===================")

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ Read failed: %v\n", err)
		os.Exit(1)
	}

	classifier, err := buildClassifier(*backend)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Print("📷 Normalizing... ")
	norm, err := frame.Normalize(data, 0, 512)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ (%d KB)\n", len(norm.Classifier)/1024)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("🧠 Asking %s... ", classifier.Name())
	start := time.Now()
	raw, err := classifier.Classify(ctx, norm.Classifier, *prompt)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ (%.1fs)\n", time.Since(start).Seconds())

	el := element.FromLabel(raw)

	fmt.Println()
	fmt.Println("╭───────────────────────────────────────────")
	fmt.Printf("│ 👁️  Saw:     %s\n", raw)
	if el == element.Other {
		fmt.Println("│ ⚪ Element: other (not collectible)")
	} else {
		fmt.Printf("│ ✨ Element: %s (%s)\n", el, el.Info().Korean)
		fmt.Printf("│ 🔄 Cycle:   generates %s, destroys %s\n", el.Generates(), el.Destroys())
	}
	fmt.Println("╰───────────────────────────────────────────")
}

// buildClassifier constructs the requested classification backend.
func buildClassifier(name string) (classify.Classifier, error) {
	switch name {
	case "gemini":
		return classify.NewGemini(classify.WithAPIKey(config.GeminiAPIKey()))
	case "openai":
		return classify.NewOpenAI(classify.WithAPIKey(config.OpenAIAPIKey()))
	case "cloudvision":
		return classify.NewCloudVision(context.Background())
	case "mock":
		return classify.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", name)
	}
}
