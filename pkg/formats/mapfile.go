package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-iso/pkg/encoding"
)

// Map file errors.
var (
	ErrMalformedHeader  = errors.New("malformed map header")
	ErrMalformedValue   = errors.New("malformed map value")
	ErrSizeMismatch     = errors.New("tile count does not match map size")
	ErrTileIDOutOfRange = errors.New("tile id out of range")
)

// SizeMismatchError reports a tile count different from Width*Height.
type SizeMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("incorrect number of tiles in map: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrSizeMismatch) match.
func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// Map is a rectangular grid of tile ids.
//
// Tiles is row-major: the tile at (x, y) is Tiles[y*Width+x], and y grows
// downward in file order. Tile ids are opaque; they are checked against a
// sprite table with Validate, not by the parser.
type Map struct {
	Width  uint32
	Height uint32
	Tiles  []uint32
}

// At returns the tile id at (x, y). Returns false if out of bounds.
func (m *Map) At(x, y int) (uint32, bool) {
	if x < 0 || y < 0 || x >= int(m.Width) || y >= int(m.Height) {
		return 0, false
	}
	return m.Tiles[y*int(m.Width)+x], true
}

// Validate checks that the tile count matches the size and that every tile
// id is below limit.
func (m *Map) Validate(limit int) error {
	if expected := uint64(m.Width) * uint64(m.Height); uint64(len(m.Tiles)) != expected {
		return &SizeMismatchError{Expected: expected, Actual: uint64(len(m.Tiles))}
	}
	for i, id := range m.Tiles {
		if int64(id) >= int64(limit) {
			return fmt.Errorf("%w: tile %d at (%d, %d) is %d, table has %d entries",
				ErrTileIDOutOfRange, i, i%int(m.Width), i/int(m.Width), id, limit)
		}
	}
	return nil
}

// MaxTileID returns the largest tile id in the map, or 0 for an empty map.
func (m *Map) MaxTileID() uint32 {
	var max uint32
	for _, id := range m.Tiles {
		if id > max {
			max = id
		}
	}
	return max
}

// Equal reports whether two maps have the same size and tiles.
func (m *Map) Equal(other *Map) bool {
	if m.Width != other.Width || m.Height != other.Height || len(m.Tiles) != len(other.Tiles) {
		return false
	}
	for i := range m.Tiles {
		if m.Tiles[i] != other.Tiles[i] {
			return false
		}
	}
	return true
}

// Encode returns the canonical text form: the header line followed by one
// line per map row.
func (m *Map) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d,%d\n", m.Width, m.Height)

	w := int(m.Width)
	for row := 0; w > 0 && row < int(m.Height); row++ {
		for col, id := range m.Tiles[row*w : (row+1)*w] {
			if col > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatUint(uint64(id), 10))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseMap parses a map from raw bytes.
func ParseMap(data []byte) (*Map, error) {
	return ParseMapReader(bytes.NewReader(data))
}

// ParseMapFile parses a map file from disk.
func ParseMapFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening map file: %w", err)
	}
	defer f.Close()
	return ParseMapReader(f)
}

// ParseMapReader parses the text map format:
//
//	<width>,<height>
//	<tile>,<tile>,...
//
// Tile values may wrap across any number of lines. Blank lines contribute
// nothing. Whitespace around each field is ignored. A byte order mark is
// honoured, so UTF-16 files are accepted.
func ParseMapReader(r io.Reader) (*Map, error) {
	br := bufio.NewReader(encoding.NewTextReader(r))

	header, err := readLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading map header: %w", err)
	}
	width, height, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	expected := uint64(width) * uint64(height)
	tiles := make([]uint32, 0, min(expected, 1<<20))

	for lineNo := 2; ; lineNo++ {
		line, readErr := readLine(br)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading map line %d: %w", lineNo, readErr)
		}

		if strings.TrimSpace(line) != "" {
			for i, field := range splitLine(line) {
				v, err := parseValue(field)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d, field %d: %q", ErrMalformedValue, lineNo, i+1, field)
				}
				tiles = append(tiles, v)
			}
		}

		if readErr != nil {
			break
		}
	}

	if uint64(len(tiles)) != expected {
		return nil, &SizeMismatchError{Expected: expected, Actual: uint64(len(tiles))}
	}

	return &Map{Width: width, Height: height, Tiles: tiles}, nil
}

func parseHeader(line string) (width, height uint32, err error) {
	var fields []string
	if strings.TrimSpace(line) != "" {
		fields = splitLine(line)
	}

	switch {
	case len(fields) < 1 || fields[0] == "":
		return 0, 0, fmt.Errorf("%w: missing width", ErrMalformedHeader)
	case len(fields) < 2 || fields[1] == "":
		return 0, 0, fmt.Errorf("%w: missing height", ErrMalformedHeader)
	case len(fields) > 2:
		return 0, 0, fmt.Errorf("%w: extraneous value %q on line 1", ErrMalformedHeader, fields[2])
	}

	if width, err = parseValue(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: width %q", ErrMalformedValue, fields[0])
	}
	if height, err = parseValue(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: height %q", ErrMalformedValue, fields[1])
	}
	return width, height, nil
}

// readLine returns the next line without its terminator. At end of input it
// returns the final (possibly empty) line together with io.EOF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func splitLine(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseValue(field string) (uint32, error) {
	v, err := strconv.ParseUint(field, 10, 32)
	return uint32(v), err
}
