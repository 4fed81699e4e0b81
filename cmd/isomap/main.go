// isomap is a CLI utility for inspecting, packing and converting isometric tile maps.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/Faultbox/midgard-iso/internal/assets"
	"github.com/Faultbox/midgard-iso/internal/config"
	"github.com/Faultbox/midgard-iso/internal/engine/scene"
	"github.com/Faultbox/midgard-iso/internal/engine/sprite"
	"github.com/Faultbox/midgard-iso/internal/engine/texture"
	"github.com/Faultbox/midgard-iso/internal/game/world"
	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/formats"
	"github.com/Faultbox/midgard-iso/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Diagnostics go to stderr; stdout carries command output.
	level := os.Getenv("ISOMAP_LOG")
	if level == "" {
		level = "warn"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "validate", "check":
		cmdValidate(args)
	case "pack":
		cmdPack(args)
	case "render":
		cmdRender(args)
	case "convert":
		cmdConvert(args)
	case "pick":
		cmdPick(args)
	case "init":
		cmdInit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`isomap - isometric tile map utility

Usage:
  isomap <command> [options]

Commands:
  info <map>                        Show map size and tile id usage
  validate <map> [-sprites dir]     Check every tile id has a sprite
  pack <dir> [-o atlas.png]         Pack tile sprites into an atlas
  render <map> <dir> [-sort]        List sprite placements for a map
  convert <in.tmx> <out.map>        Convert a Tiled map to the text format
  pick <x> <y>                      Show the map cell under a placement-space point
  init [config.yaml]                Write a default viewer config

Maps ending in .tmx are read with the Tiled importer.
Set ISOMAP_LOG=debug for diagnostics on stderr.

Examples:
  isomap info assets/maps/default.map
  isomap validate assets/maps/default.map -sprites assets/textures/map
  isomap pack assets/textures/map -o atlas.png -index atlas.yaml
  isomap render assets/maps/default.map assets/textures/map -png preview.png
  isomap convert island.tmx island.map -layer ground
  isomap pick 640 360`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadMap reads a map from an OS path through the map store.
func loadMap(path, layer string) *formats.Map {
	store := world.NewManager(os.DirFS(filepath.Dir(path)), layer)
	h, err := store.LoadMap(filepath.Base(path))
	if err != nil {
		fail("%v", err)
	}
	m, _ := store.Get(h)
	return m.Map
}

type spriteFlags struct {
	prefix  *string
	ext     *string
	digits  *int
	padding *int
	maxSize *int
}

func addSpriteFlags(fs *flag.FlagSet) spriteFlags {
	def := config.Default().Sprites
	return spriteFlags{
		prefix:  fs.String("prefix", def.Prefix, "Sprite file name prefix"),
		ext:     fs.String("ext", def.Ext, "Sprite file extension"),
		digits:  fs.Int("digits", def.Digits, "Zero-padded digits in sprite names"),
		padding: fs.Int("padding", def.Padding, "Pixels between packed sprites"),
		maxSize: fs.Int("max", def.MaxAtlasSize, "Maximum atlas edge in pixels"),
	}
}

// loadSprites builds the sprite table of dir, waiting for every image.
func loadSprites(dir string, sf spriteFlags) *sprite.Sprites {
	mgr := assets.NewManager(os.DirFS(dir), runtime.NumCPU())
	s := sprite.New(mgr, sprite.Config{
		Dir:    ".",
		Prefix: *sf.prefix,
		Ext:    *sf.ext,
		Digits: *sf.digits,
		Packer: texture.Packer{MaxSize: *sf.maxSize, Padding: *sf.padding},
	})
	if err := s.Start(); err != nil {
		fail("%v", err)
	}
	mgr.Wait()
	if err := s.Tick(); err != nil {
		fail("%v", err)
	}
	if !s.IsReady() {
		fail("sprites in %s did not finish loading", dir)
	}
	return s
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	layer := fs.String("layer", "", "TMX tile layer (default: first)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: isomap info <map> [-layer name]")
		os.Exit(1)
	}

	m := loadMap(fs.Arg(0), *layer)

	idCount := make(map[uint32]int)
	for _, id := range m.Tiles {
		idCount[id]++
	}

	fmt.Printf("Map:     %s\n", fs.Arg(0))
	fmt.Printf("Size:    %d x %d\n", m.Width, m.Height)
	fmt.Printf("Tiles:   %d\n", len(m.Tiles))
	fmt.Printf("Max id:  %d\n", m.MaxTileID())
	fmt.Println()
	fmt.Println("Tile ids by use:")

	type idStat struct {
		id    uint32
		count int
	}
	var stats []idStat
	for id, count := range idCount {
		stats = append(stats, idStat{id, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].id < stats[j].id
	})

	for _, s := range stats {
		fmt.Printf("  %-6d %d\n", s.id, s.count)
	}
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	dir := fs.String("sprites", "", "Tile sprite folder")
	layer := fs.String("layer", "", "TMX tile layer (default: first)")
	sf := addSpriteFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 || *dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: isomap validate <map> -sprites <dir>")
		os.Exit(1)
	}

	m := loadMap(fs.Arg(0), *layer)

	mgr := assets.NewManager(os.DirFS(*dir), 1)
	names, err := mgr.ScanDir(".", *sf.prefix+"*"+*sf.ext)
	if err != nil {
		fail("%v", err)
	}
	have := make(map[string]bool, len(names))
	for _, name := range names {
		have[name] = true
	}

	problems := 0
	for id := 0; id < len(names); id++ {
		name := fmt.Sprintf("%s%0*d%s", *sf.prefix, *sf.digits, id, *sf.ext)
		if !have[name] {
			fmt.Printf("missing sprite for tile %d: %s\n", id, name)
			problems++
		}
	}
	if err := m.Validate(len(names)); err != nil {
		fmt.Println(err)
		problems++
	}

	if problems > 0 {
		fmt.Fprintf(os.Stderr, "\n%d problem(s) found\n", problems)
		os.Exit(1)
	}
	fmt.Printf("OK: %dx%d map, %d sprites, max tile id %d\n", m.Width, m.Height, len(names), m.MaxTileID())
}

func cmdPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	out := fs.String("o", "atlas.png", "Output atlas image")
	index := fs.String("index", "", "Optional YAML index output")
	sf := addSpriteFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: isomap pack <dir> [-o atlas.png] [-index atlas.yaml]")
		os.Exit(1)
	}

	s := loadSprites(fs.Arg(0), sf)
	atlas := s.Atlas()

	if err := writeFile(*out, atlas.EncodePNG); err != nil {
		fail("%v", err)
	}
	size := atlas.Image.Bounds().Size()
	fmt.Printf("Packed: %s (%d sprites, %dx%d)\n", *out, s.Len(), size.X, size.Y)

	if *index == "" {
		return
	}
	idx := atlas.Index(filepath.Base(*out))
	for id := 0; id < s.Len(); id++ {
		e, _ := s.Lookup(uint32(id))
		idx.Tiles = append(idx.Tiles, texture.IndexTile{
			ID:     id,
			Slot:   int(e.Slot),
			Source: s.TilePath(id),
		})
	}
	if err := writeFile(*index, idx.WriteYAML); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Index:  %s\n", *index)
}

func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	sorted := fs.Bool("sort", false, "Print placements in paint order")
	pngOut := fs.String("png", "", "Also composite the map into this PNG")
	layer := fs.String("layer", "", "TMX tile layer (default: first)")
	tw := fs.Float64("tw", math.DefaultTileWidth, "Tile footprint width")
	th := fs.Float64("th", math.DefaultTileHeight, "Tile footprint height")
	sf := addSpriteFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: isomap render <map> <dir> [-sort] [-png out.png]")
		os.Exit(1)
	}

	m := loadMap(fs.Arg(0), *layer)
	s := loadSprites(fs.Arg(1), sf)

	maps := world.NewManager(nil, "")
	if err := maps.SetCurrent(maps.Add(fs.Arg(0), m)); err != nil {
		fail("%v", err)
	}

	proj := math.IsoProjector{TileWidth: float32(*tw), TileHeight: float32(*th)}
	sink := &scene.RecordSink{}
	r := scene.NewMapRenderer(proj, maps, s, sink, nil)
	if _, err := r.Tick(); err != nil {
		fail("%v", err)
	}

	placements := sink.Placements
	if *sorted || *pngOut != "" {
		scene.SortForPaint(placements)
	}

	for _, p := range placements {
		fmt.Printf("%g\t%g\t%.6f\t%d\n", p.Position.X, p.Position.Y, p.Depth, p.Slot)
	}

	if *pngOut != "" {
		img := composite(placements, s.Atlas())
		if err := writeFile(*pngOut, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
			fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "\nWrote %s (%dx%d)\n", *pngOut, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// composite paints placements, already in paint order, onto one image.
func composite(placements []scene.Placement, atlas *texture.Atlas) *image.RGBA {
	var bounds image.Rectangle
	for i, p := range placements {
		r, ok := atlas.Slot(int(p.Slot))
		if !ok {
			continue
		}
		dst := p.Bounds(r.Size())
		if i == 0 {
			bounds = dst
		} else {
			bounds = bounds.Union(dst)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for _, p := range placements {
		src, ok := atlas.SubImage(int(p.Slot))
		if !ok {
			continue
		}
		dst := p.Bounds(src.Bounds().Size()).Sub(bounds.Min)
		draw.Draw(img, dst, src, src.Bounds().Min, draw.Over)
	}
	return img
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	layer := fs.String("layer", "", "TMX tile layer (default: first)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: isomap convert <in.tmx> <out.map> [-layer name]")
		os.Exit(1)
	}

	m := loadMap(fs.Arg(0), *layer)

	if err := os.MkdirAll(filepath.Dir(fs.Arg(1)), 0755); err != nil {
		fail("creating directory: %v", err)
	}
	if err := os.WriteFile(fs.Arg(1), m.Encode(), 0644); err != nil {
		fail("writing file: %v", err)
	}
	fmt.Printf("Converted: %s (%dx%d)\n", fs.Arg(1), m.Width, m.Height)
}

func cmdPick(args []string) {
	fs := flag.NewFlagSet("pick", flag.ExitOnError)
	tw := fs.Float64("tw", math.DefaultTileWidth, "Tile footprint width")
	th := fs.Float64("th", math.DefaultTileHeight, "Tile footprint height")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: isomap pick <x> <y>")
		os.Exit(1)
	}

	x, errX := strconv.ParseFloat(strings.TrimSpace(fs.Arg(0)), 32)
	y, errY := strconv.ParseFloat(strings.TrimSpace(fs.Arg(1)), 32)
	if errX != nil || errY != nil {
		fail("coordinates must be numbers: %q %q", fs.Arg(0), fs.Arg(1))
	}

	proj := math.IsoProjector{TileWidth: float32(*tw), TileHeight: float32(*th)}
	cx, cy := scene.CellAt(proj, math.Vec2{X: float32(x), Y: float32(y)})
	centre := proj.ToIsometric(math.Vec2{X: float32(cx), Y: float32(cy)})

	fmt.Printf("Cell:   (%d, %d)\n", cx, cy)
	fmt.Printf("Centre: (%g, %g)\n", centre.X, centre.Y)
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("f", false, "Overwrite an existing file")
	fs.Parse(args)

	cfg := config.Default()
	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if _, err := os.Stat(path); err == nil && !*force {
		fail("%s exists (use -f to overwrite)", path)
	}
	save := func() error { return cfg.Save() }
	if fs.NArg() > 0 {
		save = func() error { return cfg.SaveTo(path) }
	}
	if err := save(); err != nil {
		fail("writing config: %v", err)
	}
	fmt.Printf("Wrote: %s\n", path)
}

func writeFile(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
