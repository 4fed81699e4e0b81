package texture

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"gopkg.in/yaml.v3"
)

// Atlas is one RGBA surface holding many source images at disjoint slots.
type Atlas struct {
	Image *image.RGBA
	Slots []image.Rectangle
}

// BuildAtlas packs images and copies their pixels into a new atlas.
// The returned slice gives the slot assigned to each input image.
func BuildAtlas(images []image.Image, packer Packer) (*Atlas, []int, error) {
	sizes := make([]image.Point, len(images))
	for i, img := range images {
		if img == nil {
			return nil, nil, fmt.Errorf("image %d is nil", i)
		}
		sizes[i] = img.Bounds().Size()
	}

	layout, err := packer.Pack(sizes)
	if err != nil {
		return nil, nil, err
	}

	surface := image.NewRGBA(image.Rectangle{Max: layout.Size})
	for slot, input := range layout.Order {
		src := images[input]
		draw.Copy(surface, layout.Slots[slot].Min, src, src.Bounds(), draw.Src, nil)
	}

	return &Atlas{Image: surface, Slots: layout.Slots}, layout.SlotOf, nil
}

// Len returns the number of slots.
func (a *Atlas) Len() int {
	return len(a.Slots)
}

// Slot returns the rectangle of a slot.
func (a *Atlas) Slot(slot int) (image.Rectangle, bool) {
	if slot < 0 || slot >= len(a.Slots) {
		return image.Rectangle{}, false
	}
	return a.Slots[slot], true
}

// SubImage returns the pixels of one slot, sharing the atlas memory.
func (a *Atlas) SubImage(slot int) (image.Image, bool) {
	r, ok := a.Slot(slot)
	if !ok {
		return nil, false
	}
	return a.Image.SubImage(r), true
}

// EncodePNG writes the atlas surface as PNG.
func (a *Atlas) EncodePNG(w io.Writer) error {
	return png.Encode(w, a.Image)
}

// Index describes an atlas for tools that read it without this package.
type Index struct {
	Image  string      `yaml:"image"`
	Width  int         `yaml:"width"`
	Height int         `yaml:"height"`
	Slots  []IndexSlot `yaml:"slots"`
	Tiles  []IndexTile `yaml:"tiles,omitempty"`
}

// IndexSlot is one packed rectangle.
type IndexSlot struct {
	Slot int `yaml:"slot"`
	X    int `yaml:"x"`
	Y    int `yaml:"y"`
	W    int `yaml:"w"`
	H    int `yaml:"h"`
}

// IndexTile maps a tile id to its slot and source file.
type IndexTile struct {
	ID     int    `yaml:"id"`
	Slot   int    `yaml:"slot"`
	Source string `yaml:"source,omitempty"`
}

// Index returns the slot table of the atlas. Tiles are left for the caller.
func (a *Atlas) Index(imageName string) Index {
	idx := Index{
		Image:  imageName,
		Width:  a.Image.Bounds().Dx(),
		Height: a.Image.Bounds().Dy(),
		Slots:  make([]IndexSlot, len(a.Slots)),
	}
	for i, r := range a.Slots {
		idx.Slots[i] = IndexSlot{Slot: i, X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
	}
	return idx
}

// WriteYAML encodes the index as YAML.
func (idx Index) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(idx); err != nil {
		return err
	}
	return enc.Close()
}

// ReadIndex decodes a YAML atlas index.
func ReadIndex(r io.Reader) (Index, error) {
	var idx Index
	err := yaml.NewDecoder(r).Decode(&idx)
	return idx, err
}
