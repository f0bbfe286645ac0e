// Package lantern is the rendering and synchronization core of a tabletop
// game-master tool built on [Ebitengine].
//
// Lantern parses Dungeon Scrawl save files into a typed scene graph,
// rasterizes the active page (geometry fills and strokes, grid lines,
// nested asset transforms), and runs the live display compositor that keeps
// a separate player-facing window in sync with the control panel through a
// typed cross-window event protocol.
//
// The package is organized around three pieces:
//
//   - [ParseDungeon], [SummaryTree], and [ResolveTree] turn a save file
//     into a traversable node tree.
//   - [Rasterizer] walks a page's node list depth-first and issues draw
//     operations onto a [Canvas].
//   - [Compositor] owns the live token set, background, and grid metrics
//     of a display window and redraws on every protocol event.
//
// Windows never share memory. The control panel and the display window
// exchange [Event] values through a [Transport]: an in-process [MemoryBus]
// when both views run in one process, or the loopback HTTP transport in
// lantern/httpbus when the display runs as its own process. Persistence for
// entities, stages, and groups lives in lantern/store.
//
// The core is single-threaded in the Ebitengine sense: all state mutation
// happens on the game loop, and the only genuinely asynchronous operation
// on the render path is external image loading.
//
// [Ebitengine]: https://ebitengine.org
package lantern
