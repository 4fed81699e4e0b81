// Package formats provides parsers for tile map files.
//
// The native format is a comma-separated text grid (mapfile.go). Maps drawn
// in the Tiled editor are imported from TMX (tmx.go). Both produce a Map.
package formats
