package lib

import (
	"bytes"
	"io"
	"os"

	"github.com/aclements/go-rabin/rabin"
	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// Constants for the Rabin chunker configuration.
const (
	// These values determine the target chunk sizes.
	minChunkSize = 4 * 1024  // 4KB
	avgChunkSize = 8 * 1024  // 8KB
	maxChunkSize = 16 * 1024 // 16KB

	// A 64-bit irreducible polynomial over GF(2).
	defaultPoly = rabin.Poly64
	// The size of the rolling hash window.
	defaultWindowSize = 64
)

// rabinTable is a pre-computed table for the Rabin chunker.
// Initializing this is computationally expensive, so we do it once and reuse it.
var rabinTable = rabin.NewTable(defaultPoly, defaultWindowSize)

// ChunkFile splits a stored blob into variable-sized chunks using Rabin
// fingerprinting and returns the hash and size of each chunk. The stats
// command uses the chunk hashes to estimate how much content is duplicated
// across objects below whole-file granularity; chunk data is not retained.
func ChunkFile(filePath string) ([]types.Chunk, int64, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, 0, err
	}

	if len(content) == 0 {
		return []types.Chunk{}, 0, nil
	}

	reader := bytes.NewReader(content)
	chunker := rabin.NewChunker(rabinTable, reader, minChunkSize, avgChunkSize, maxChunkSize)

	var chunks []types.Chunk
	var totalSize int64
	var offset int64

	for {
		length, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		chunkData := content[offset : offset+int64(length)]
		offset += int64(length)

		size := int64(len(chunkData))
		totalSize += size
		chunks = append(chunks, types.Chunk{Hash: GetHash(chunkData), Size: size})
	}

	// A blob smaller than the minimum chunk size may produce no chunks; treat
	// the whole blob as a single chunk.
	if len(chunks) == 0 && len(content) > 0 {
		size := int64(len(content))
		chunks = append(chunks, types.Chunk{Hash: GetHash(content), Size: size})
		totalSize = size
	}

	return chunks, totalSize, nil
}
