// Command lantern is the game master's control panel: it owns the record
// store, renders the editor map view, and drives the live display by
// pushing resolved stage state over the event protocol.
//
// Usage:
//
//	lantern <stage-id>
//
// The stage is resolved from the database, shown on the editor canvas, and
// pushed to the display process named by LANTERN_DISPLAY_URL.
package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/lantern"
	"github.com/phanxgames/lantern/httpbus"
	"github.com/phanxgames/lantern/store"
)

type config struct {
	DBPath        string
	DisplayURL    string
	DisplayWindow string
	EditorWindow  string
	Width         int
	Height        int
}

func loadConfig() config {
	return config{
		DBPath:        getEnv("LANTERN_DB", "lantern.db"),
		DisplayURL:    getEnv("LANTERN_DISPLAY_URL", "http://127.0.0.1:8423"),
		DisplayWindow: getEnv("LANTERN_DISPLAY_WINDOW", "display"),
		EditorWindow:  getEnv("LANTERN_EDITOR_WINDOW", "editor"),
		Width:         getEnvAsInt("LANTERN_WIDTH", 1280),
		Height:        getEnvAsInt("LANTERN_HEIGHT", 720),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// game runs the editor view's frame loop. The view is mounted on an
// offscreen image so it can subscribe to the bus before the first frame;
// Draw repaints the view and blits it.
type game struct {
	view      *lantern.EditorView
	offscreen *ebiten.Image
}

func (g *game) Update() error {
	g.view.Update(1.0 / float32(ebiten.TPS()))
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.view.Draw()
	screen.DrawImage(g.offscreen, nil)
}

func (g *game) Layout(int, int) (int, int) {
	b := g.offscreen.Bounds()
	return b.Dx(), b.Dy()
}

func main() {
	cfg := loadConfig()

	if len(os.Args) < 2 {
		log.Fatal("usage: lantern <stage-id>")
	}
	stageID := os.Args[1]

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	resolved, err := db.ResolveStage(ctx, stageID)
	if err != nil {
		log.Fatalf("resolve stage %q: %v", stageID, err)
	}
	payload := resolved.Payload()

	// The editor's views live in this process and talk over the in-memory
	// bus; the display is a separate process behind the HTTP client.
	bus := lantern.NewMemoryBus()
	display := httpbus.NewClient(cfg.DisplayURL)

	view := lantern.NewEditorView(cfg.EditorWindow, bus)
	offscreen := ebiten.NewImage(cfg.Width, cfg.Height)
	view.Mount(lantern.NewEbitenCanvas(offscreen))
	if resolved.Map != nil {
		view.SetDungeon(resolved.Map)
	}

	display.Emit(cfg.DisplayWindow, &lantern.InitEvent{Stage: payload})
	bus.Emit(cfg.EditorWindow, &lantern.StateEvent{Stage: payload})

	for i, in := range resolved.InitiativeOrder() {
		name := in.DisplayName()
		if in.Entity != nil {
			log.Printf("initiative %2d: %s (%d)", i+1, name, in.Entity.Initiative)
		}
	}

	ebiten.SetWindowTitle("Lantern — " + resolved.Stage.Name)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(&game{view: view, offscreen: offscreen}); err != nil {
		log.Fatal(err)
	}
}
