// watch: Live anchor feed from a running fortuna coordinator
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
)

var (
	addr   = flag.String("addr", "localhost:8090", "coordinator host:port")
	device = flag.String("device", "", "only print updates for this device")
)

// anchorEvent mirrors the dashboard's anchor broadcast payload.
type anchorEvent struct {
	Device     string `json:"device"`
	Generation uint64 `json:"generation"`
	Entities   []struct {
		ID      uint64 `json:"id"`
		Label   string `json:"label"`
		State   string `json:"state"`
		Element string `json:"element"`
	} `json:"entities"`
}

func main() {
	flag.Parse()

	fmt.Println("👁️  Fortuna Watch")
	fmt.Println("=================")

	url := fmt.Sprintf("ws://%s/ws/anchors", *addr)
	fmt.Printf("Connecting to %s... ", url)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer ws.Close()
	fmt.Println("✅")
	fmt.Println("Watching (Ctrl+C to stop)")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Goodbye!")
		ws.Close()
		os.Exit(0)
	}()

	for {
		var event anchorEvent
		if err := ws.ReadJSON(&event); err != nil {
			fmt.Printf("❌ Read error: %v\n", err)
			os.Exit(1)
		}
		if *device != "" && event.Device != *device {
			continue
		}
		fmt.Println(formatLine(event))
	}
}

// formatLine renders one anchor snapshot as a single terminal line.
func formatLine(event anchorEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] gen %d: %d anchors", event.Device, event.Generation, len(event.Entities))

	for _, e := range event.Entities {
		label := e.Label
		if label == "" {
			label = "?"
		}
		switch e.State {
		case "completed":
			fmt.Fprintf(&b, " | #%d %s→%s", e.ID, label, e.Element)
		case "failed":
			fmt.Fprintf(&b, " | #%d %s✗", e.ID, label)
		default:
			fmt.Fprintf(&b, " | #%d %s (%s)", e.ID, label, e.State)
		}
	}
	return b.String()
}
