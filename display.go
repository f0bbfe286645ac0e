package lantern

import (
	"context"
	"image/color"
	"sort"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// DisplayMode selects which protocol family a compositor listens to.
type DisplayMode int

const (
	// ModeLive is the player-facing display: it consumes the incremental
	// Init/Update/Add/Delete family.
	ModeLive DisplayMode = iota
	// ModeEditor is the control panel's entity overlay: it consumes only
	// the full-state UpdateState event.
	ModeEditor
)

// DefaultGridSize is the grid cell size in pixels before an Init event
// establishes the stage's own scale.
const DefaultGridSize = 32.0

// defaultGridColour is the display grid line color.
var defaultGridColour = SceneColor{Colour: 0x888888, Alpha: 0.5}

// Background is the live display's background image state.
type Background struct {
	Image *ebiten.Image

	// Position is an explicit grid-cell position; nil auto-centers the
	// image relative to the viewport.
	Position *Vec2

	OffsetX, OffsetY float64
	Rotation         float64
	Scale            float64
}

// Compositor owns the runtime-visible state of one display window: the
// token set, background, and grid metrics. It is rebuilt entirely from
// protocol events and never persisted.
//
// Mounting is reference-counted so multiple logical mounts collapse onto
// one physical canvas: only the first Mount subscribes to the transport and
// only the last Unmount tears down.
type Compositor struct {
	mode      DisplayMode
	window    string
	transport Transport

	mu         sync.Mutex
	mounts     int
	canvas     Canvas
	tokens     map[string]*Token
	background *Background
	gridSize   float64

	load   imageLoader
	unsubs []func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCompositor creates a compositor for the window labeled window on
// transport, listening per mode.
func NewCompositor(mode DisplayMode, window string, transport Transport) *Compositor {
	return &Compositor{
		mode:      mode,
		window:    window,
		transport: transport,
		tokens:    make(map[string]*Token),
		gridSize:  DefaultGridSize,
		load:      loadExternalImage,
	}
}

// Mount attaches the compositor to a canvas. Calling Mount again while
// mounted only increments the reference count; the transport subscription
// is never doubled. Canvas sizing follows the host window's layout, so
// there is nothing to resize here — Size is read fresh every frame.
func (c *Compositor) Mount(canvas Canvas) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mounts++
	if c.mounts > 1 {
		return
	}

	c.canvas = canvas
	c.ctx, c.cancel = context.WithCancel(context.Background())

	switch c.mode {
	case ModeEditor:
		c.unsubs = append(c.unsubs, c.transport.Subscribe(c.window, c.handleEditor))
	default:
		c.unsubs = append(c.unsubs, c.transport.Subscribe(c.window, c.handleLive))
	}
}

// Unmount releases one mount reference. On the last release it cancels any
// in-flight initialization, unsubscribes from the transport, and drops the
// canvas. Calling Unmount with no prior Mount is a no-op.
func (c *Compositor) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mounts == 0 {
		return
	}
	c.mounts--
	if c.mounts > 0 {
		return
	}

	c.cancel()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.canvas = nil
}

// AddEntity installs a token. Instance ids are unique, so an id collision
// is a caller bug and fails with *DuplicateEntityError.
func (c *Compositor) AddEntity(t *Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tokens[t.ID]; exists {
		return &DuplicateEntityError{ID: t.ID}
	}
	c.tokens[t.ID] = t
	return nil
}

// RemoveEntity removes a token by id. Removing an absent id is a no-op.
func (c *Compositor) RemoveEntity(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, id)
}

// GetEntity returns the token with the given id, or nil.
func (c *Compositor) GetEntity(id string) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[id]
}

// GridSize returns the current grid cell size in pixels.
func (c *Compositor) GridSize() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gridSize
}

// Render draws the full display frame: background, grid, then tokens.
//
// Tokens draw in descending z order — z=3 first, z=1 last — so lower-z
// tokens composite on top. This matches the behavior the control panel's
// users have always seen; do not flip it to the conventional order without
// a product decision.
func (c *Compositor) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked()
}

func (c *Compositor) renderLocked() {
	if c.canvas == nil {
		return
	}
	if c.mode == ModeEditor {
		// The editor canvas is owned by its frame loop: the map rasterizer
		// repaints every frame and calls DrawTokens after it. Rendering here
		// would clear the freshly drawn map.
		return
	}

	if err := c.canvas.Clear(color.Black); err != nil {
		warnf("clear display: %v", err)
	}
	c.canvas.SetTransform(identityTransform)

	if c.background != nil && c.background.Image != nil {
		c.drawBackground(c.background)
		// Background rotation must not bleed into the grid or tokens.
		c.canvas.SetTransform(identityTransform)
	}

	if err := c.canvas.GridLines(GridSettings{
		CellDiameter: c.gridSize,
		LineWidth:    1,
		Colour:       defaultGridColour,
	}); err != nil {
		warnf("display grid: %v", err)
	}

	for _, t := range c.sortedTokensLocked() {
		t.Draw(c.canvas, c.gridSize)
	}
}

// sortedTokensLocked returns tokens in draw order: descending z, with id as
// a deterministic tie-break. Higher z draws first, so lower-z tokens end up
// composited on top.
func (c *Compositor) sortedTokensLocked() []*Token {
	ordered := make([]*Token, 0, len(c.tokens))
	for _, t := range c.tokens {
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Z != ordered[j].Z {
			return ordered[i].Z > ordered[j].Z
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// DrawTokens draws the token set onto canvas in draw order. Used by the
// editor frame loop, which composites tokens over the rasterized map
// instead of letting the compositor own the whole frame.
func (c *Compositor) DrawTokens(canvas Canvas) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.sortedTokensLocked() {
		t.Draw(canvas, c.gridSize)
	}
}

func (c *Compositor) drawBackground(bg *Background) {
	b := bg.Image.Bounds()
	scale := bg.Scale
	if scale <= 0 {
		scale = 1
	}
	bw := float64(b.Dx()) * scale
	bh := float64(b.Dy()) * scale

	var x, y float64
	if bg.Position != nil {
		x = bg.Position.X * c.gridSize
		y = bg.Position.Y * c.gridSize
	} else {
		w, h := c.canvas.Size()
		x = (w - bw) / 2
		y = (h - bh) / 2
	}
	x += bg.OffsetX
	y += bg.OffsetY

	if bg.Rotation != 0 {
		c.canvas.Rotate(bg.Rotation)
	}
	if err := c.canvas.DrawImage(bg.Image, ImageOptions{X: x, Y: y, W: bw, H: bh}); err != nil {
		warnf("draw background: %v", err)
	}
}

// --- Event handling ---

func (c *Compositor) handleLive(ev Event) {
	switch ev := ev.(type) {
	case *InitEvent:
		c.applyStage(ev.Stage)
	case *UpdateEvent:
		c.applyUpdate(ev)
	case *AddEvent:
		c.AddInstance(ev.Instance)
	case *DeleteEvent:
		c.RemoveEntity(ev.InstanceID)
		c.Render()
	}
}

func (c *Compositor) handleEditor(ev Event) {
	if state, ok := ev.(*StateEvent); ok {
		c.applyStage(state.Stage)
	}
}

// applyStage replaces all live state with a resolved stage. The new token
// set is built off-screen first — image loads run concurrently with
// per-token error isolation — and swapped in atomically, so an observer
// never sees half old, half new state. One render follows the swap.
func (c *Compositor) applyStage(stage StagePayload) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	uris := make([]string, 0, len(stage.Instances)+1)
	for _, in := range stage.Instances {
		if in.Entity != nil {
			uris = append(uris, in.Entity.Image)
		}
	}
	if stage.Background != nil {
		uris = append(uris, stage.Background.Image)
	}
	images := loadBatch(ctx, c.load, uris)

	// A canceled mount's continuation exits without touching state.
	if ctx.Err() != nil {
		return
	}

	next := make(map[string]*Token, len(stage.Instances))
	for _, in := range stage.Instances {
		if in.Entity == nil {
			continue
		}
		img := images[in.Entity.Image]
		if img == nil {
			// Load failed; the token is omitted, the batch goes on.
			continue
		}
		next[in.ID] = newToken(in, img)
	}

	var background *Background
	if stage.Background != nil {
		if img := images[stage.Background.Image]; img != nil {
			background = &Background{
				Image:    img,
				Position: stage.Background.Position,
				OffsetX:  stage.Background.OffsetX,
				OffsetY:  stage.Background.OffsetY,
				Rotation: stage.Background.Rotation,
				Scale:    stage.Background.Scale,
			}
		}
	}

	c.mu.Lock()
	if c.ctx == nil || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.tokens = next
	c.background = background
	if stage.GridScale > 0 {
		c.gridSize = stage.GridScale
	}
	c.renderLocked()
	c.mu.Unlock()
}

// applyUpdate mutates one token's field. Updates naming an unknown target
// are a silent no-op, but the redraw still happens: even an empty update
// invalidates the frame.
func (c *Compositor) applyUpdate(u *UpdateEvent) {
	c.mu.Lock()
	if t := c.tokens[u.Target]; t != nil {
		switch u.Kind {
		case UpdateMove:
			// u.Lerp is carried but not consumed; movement is synchronous.
			t.SetPosition(u.X, u.Y)
		case UpdateDisplay:
			t.Visible = u.DisplayOnMap
		case UpdateSetZ:
			t.Z = u.Z
		case UpdateSetPuck:
			t.Size = u.Size
		}
	}
	c.renderLocked()
	c.mu.Unlock()
}

// AddInstance loads the instance's entity image and installs a token for
// it, then triggers a render. A failed load logs and leaves the display
// unchanged.
func (c *Compositor) AddInstance(in Instance) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	var img *ebiten.Image
	if in.Entity != nil {
		loaded, err := c.load(ctx, in.Entity.Image)
		if err != nil {
			warnf("%v", err)
		} else {
			img = loaded
		}
	}
	if img == nil {
		return
	}

	if err := c.AddEntity(newToken(in, img)); err != nil {
		warnf("add instance: %v", err)
		return
	}
	c.Render()
}

// newToken builds a display token from a resolved instance.
func newToken(in Instance, img *ebiten.Image) *Token {
	t := &Token{
		ID:      in.ID,
		Name:    in.DisplayName(),
		X:       in.X,
		Y:       in.Y,
		Z:       in.Z,
		Size:    in.Size,
		Visible: true,
		Image:   img,
	}
	if in.Entity != nil {
		t.Visible = in.Entity.DisplayOnMap
		t.PlayerControlled = in.Entity.PlayerControlled
	}
	return t
}
