// Package sparse imports Android sparse images.
//
// Import reads the file header and walks every chunk of the stream, checking
// sizes and block accounting, and optionally verifies CRC32 chunks against
// the expanded image. The resulting File describes the image layout; with
// CreateCopy it also keeps the chunk payloads in memory.
package sparse
