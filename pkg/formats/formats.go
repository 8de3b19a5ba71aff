// Package formats provides parsers and writers for 3D Tiles tile formats.
//
// Batched 3D Model (b3dm) is implemented in b3dm.go. Its feature and batch
// tables are handed to the featuretable and batchtable packages.
package formats
