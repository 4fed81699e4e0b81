// Package texture packs tile images into a single atlas surface.
package texture

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

// ErrAtlasTooSmall is returned when the images do not fit in MaxSize.
var ErrAtlasTooSmall = errors.New("images do not fit in atlas")

// Packer is a shelf bin packer. Images are sorted tallest first and laid
// left to right in rows; the atlas grows in powers of two until everything
// fits or MaxSize is exceeded.
type Packer struct {
	MaxSize int // largest atlas edge in pixels
	Padding int // empty pixels between neighbouring images
}

// Layout is the result of a packing pass.
type Layout struct {
	Size image.Point

	// Slots lists the packed rectangles in placement order. Slot s holds
	// input image Order[s].
	Slots []image.Rectangle
	Order []int

	// SlotOf maps an input index to its slot.
	SlotOf []int
}

// Pack assigns a non-overlapping rectangle inside the atlas to every size.
func (p Packer) Pack(sizes []image.Point) (*Layout, error) {
	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := sizes[order[a]], sizes[order[b]]
		if sa.Y != sb.Y {
			return sa.Y > sb.Y
		}
		return sa.X > sb.X
	})

	var maxW, area int
	for _, s := range sizes {
		if s.X < 0 || s.Y < 0 {
			return nil, fmt.Errorf("negative image size %v", s)
		}
		maxW = max(maxW, s.X)
		area += (s.X + p.Padding) * (s.Y + p.Padding)
	}

	w := nextPow2(maxW)
	for w*w < area {
		w *= 2
	}
	h := w

	for w <= p.MaxSize && h <= p.MaxSize {
		if slots, ok := p.shelf(sizes, order, w, h); ok {
			layout := &Layout{
				Size:   image.Pt(w, h),
				Slots:  slots,
				Order:  order,
				SlotOf: make([]int, len(sizes)),
			}
			for slot, input := range order {
				layout.SlotOf[input] = slot
			}
			return layout, nil
		}
		// Grow the short side first so the atlas stays close to square.
		if h < w {
			h *= 2
		} else {
			w *= 2
		}
	}

	return nil, fmt.Errorf("%w: %d images, %d px of area, max edge %d", ErrAtlasTooSmall, len(sizes), area, p.MaxSize)
}

func (p Packer) shelf(sizes []image.Point, order []int, w, h int) ([]image.Rectangle, bool) {
	slots := make([]image.Rectangle, len(order))
	x, y, shelfH := 0, 0, 0

	for slot, input := range order {
		s := sizes[input]
		if s.X > w {
			return nil, false
		}
		if x+s.X > w {
			x = 0
			y += shelfH + p.Padding
			shelfH = 0
		}
		if y+s.Y > h {
			return nil, false
		}
		slots[slot] = image.Rect(x, y, x+s.X, y+s.Y)
		x += s.X + p.Padding
		shelfH = max(shelfH, s.Y)
	}
	return slots, true
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
