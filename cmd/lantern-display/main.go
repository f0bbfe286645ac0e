// Command lantern-display is the player-facing window: a fullscreen-capable
// live view fed entirely by the cross-window event protocol. It holds no
// database and no dungeon files — the control panel pushes resolved state
// over HTTP and this process just composites it.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/lantern"
	"github.com/phanxgames/lantern/httpbus"
)

type config struct {
	Addr        string
	Window      string
	Width       int
	Height      int
	Fullscreen  bool
	SnapshotDir string
}

func loadConfig() config {
	return config{
		Addr:        getEnv("LANTERN_DISPLAY_ADDR", ":8423"),
		Window:      getEnv("LANTERN_DISPLAY_WINDOW", "display"),
		Width:       getEnvAsInt("LANTERN_DISPLAY_WIDTH", 1280),
		Height:      getEnvAsInt("LANTERN_DISPLAY_HEIGHT", 720),
		Fullscreen:  getEnvAsBool("LANTERN_DISPLAY_FULLSCREEN", true),
		SnapshotDir: getEnv("LANTERN_SNAPSHOT_DIR", "snapshots"),
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

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// game blits the compositor's offscreen view each frame. The compositor
// repaints the view whenever an event lands, so Draw is a plain copy.
type game struct {
	view        *ebiten.Image
	window      string
	snapshotDir string
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if path, err := lantern.SaveSnapshot(g.view, g.snapshotDir, g.window); err != nil {
			log.Printf("snapshot: %v", err)
		} else {
			log.Printf("snapshot saved to %s", path)
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.view, nil)
}

func (g *game) Layout(int, int) (int, int) {
	b := g.view.Bounds()
	return b.Dx(), b.Dy()
}

func main() {
	cfg := loadConfig()

	bus := lantern.NewMemoryBus()
	comp := lantern.NewCompositor(lantern.ModeLive, cfg.Window, bus)

	view := ebiten.NewImage(cfg.Width, cfg.Height)
	comp.Mount(lantern.NewEbitenCanvas(view))
	comp.Render()

	srv := httpbus.NewServer(bus)
	go func() {
		log.Printf("lantern display listening on %s (window %q)", cfg.Addr, cfg.Window)
		if err := srv.Listen(cfg.Addr); err != nil {
			log.Fatalf("event server: %v", err)
		}
	}()

	ebiten.SetWindowTitle(fmt.Sprintf("Lantern — %s", cfg.Window))
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetFullscreen(cfg.Fullscreen)
	if err := ebiten.RunGame(&game{view: view, window: cfg.Window, snapshotDir: cfg.SnapshotDir}); err != nil {
		log.Fatal(err)
	}
}
