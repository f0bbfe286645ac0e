package lantern

import "sync"

// EditorView is the control panel's map canvas: the rasterized dungeon with
// the entity overlay on top, driven by the editor-scene event family. It
// never shares memory with the live display — both sides see only events.
type EditorView struct {
	window    string
	transport Transport

	mu      sync.Mutex
	canvas  Canvas
	dungeon *Dungeon
	raster  *Rasterizer
	camera  *Camera
	overlay *Compositor
	unsub   func()
}

// NewEditorView creates an editor view for the window labeled window.
func NewEditorView(window string, transport Transport) *EditorView {
	return &EditorView{
		window:    window,
		transport: transport,
		camera:    NewCamera(Rect{}),
		overlay:   NewCompositor(ModeEditor, window, transport),
	}
}

// Camera returns the editor camera. Direct camera access is only safe from
// the frame loop; event-driven scrolls go through CenterOn, which locks.
func (v *EditorView) Camera() *Camera { return v.camera }

// Mount attaches the view to its canvas and subscribes to the editor-scene
// event family. The overlay compositor mounts on the same canvas.
func (v *EditorView) Mount(canvas Canvas) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.canvas = canvas
	w, h := canvas.Size()
	v.camera.SetViewport(Rect{Width: w, Height: h})
	if v.dungeon != nil {
		v.raster = NewRasterizer(v.dungeon, canvas)
	}
	v.overlay.Mount(canvas)
	if v.unsub == nil {
		v.unsub = v.transport.Subscribe(v.window, v.handleEvent)
	}
}

// Unmount unsubscribes and releases the canvas.
func (v *EditorView) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.overlay.Unmount()
	if v.unsub != nil {
		v.unsub()
		v.unsub = nil
	}
	v.canvas = nil
}

// SetDungeon replaces the document shown on the canvas. A nil dungeon
// clears it.
func (v *EditorView) SetDungeon(d *Dungeon) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.dungeon = d
	if d == nil || v.canvas == nil {
		v.raster = nil
		return
	}
	v.raster = NewRasterizer(d, v.canvas)
	logf("document loaded: %d nodes, page %q", len(d.Nodes()), d.SelectedPage())
}

// SetNodeVisible toggles one node's visibility by id. Unknown ids are
// ignored.
func (v *EditorView) SetNodeVisible(id string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dungeon == nil {
		return
	}
	node := v.dungeon.Nodes()[id]
	if node == nil {
		warnf("set visible: node %q not found", id)
		return
	}
	node.Visible = &visible
}

// CenterOn scrolls the camera to an entity instance or a geometry-bearing
// node. Entity instances win when an id exists in both spaces; unknown ids
// log and leave the camera alone.
func (v *EditorView) CenterOn(targetID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	grid := v.overlay.GridSize()
	if t := v.overlay.GetEntity(targetID); t != nil {
		v.camera.ScrollTo(float64(t.X)*grid, float64(t.Y)*grid, cameraScrollDuration)
		return
	}

	if v.dungeon == nil {
		return
	}
	node := v.dungeon.Nodes()[targetID]
	if node == nil || node.GeometryID == "" {
		warnf("center camera: no target %q", targetID)
		return
	}
	geom := v.dungeon.GeometryByID(node.GeometryID)
	if geom == nil {
		warnf("center camera: geometry %q not found", node.GeometryID)
		return
	}
	b := geom.Bounds()
	v.camera.ScrollTo(b.X+b.Width/2, b.Y+b.Height/2, cameraScrollDuration)
}

// cameraScrollDuration is the recenter animation length in seconds.
const cameraScrollDuration float32 = 0.4

// Update advances the camera animation. Call once per frame.
func (v *EditorView) Update(dt float32) {
	v.mu.Lock()
	v.camera.Update(dt)
	v.mu.Unlock()
}

// Draw repaints the map and the entity overlay. Call once per frame from
// the host window's draw callback.
func (v *EditorView) Draw() {
	v.mu.Lock()
	raster := v.raster
	canvas := v.canvas
	if canvas == nil {
		v.mu.Unlock()
		return
	}
	w, h := canvas.Size()
	v.camera.SetViewport(Rect{Width: w, Height: h})
	view := v.camera.ViewMatrix()
	v.mu.Unlock()

	if raster != nil {
		raster.SetView(view)
		if err := raster.RenderPage(""); err != nil {
			warnf("render page: %v", err)
		}
	}
	v.overlay.DrawTokens(canvas)
}

func (v *EditorView) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case *LoadEvent:
		v.SetDungeon(ev.Dungeon)
	case *SetVisibleEvent:
		v.SetNodeVisible(ev.NodeID, ev.Visible)
	case *CenterCameraEvent:
		v.CenterOn(ev.TargetID)
	case *AddEntityEvent:
		in := ev.Instance
		if in.Layer == "" {
			in.Layer = ev.LayerID
		}
		v.overlay.AddInstance(in)
	}
}
