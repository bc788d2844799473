package corpus

import (
	"bytes"
	"errors"
	"io"
	"slices"
)

// miniChunkSize is how much is read at a time while looking for a token
// after a boundary guess.
const miniChunkSize = 4096

// FindChunkBoundaries splits the first size bytes of r into at most n
// contiguous ranges. Every interior boundary starts at an occurrence of token,
// so no occurrence of token straddles two ranges. The returned offsets are
// sorted, unique, and include 0 and size.
func FindChunkBoundaries(r io.ReaderAt, size int64, n int, token []byte) ([]int64, error) {
	if len(token) == 0 {
		return UniformBoundaries(size, n), nil
	}

	n = max(n, 1)
	chunkSize := size / int64(n)

	boundaries := make([]int64, n+1)
	for i := range boundaries {
		boundaries[i] = int64(i) * chunkSize
	}
	boundaries[n] = size

	// reads overlap by len(token)-1 bytes so a token spanning two reads is found
	overlap := len(token) - 1
	buf := make([]byte, miniChunkSize+overlap)
	for i := 1; i < n; i++ {
		pos := boundaries[i]
		for {
			if pos >= size {
				boundaries[i] = size
				break
			}

			m, err := r.ReadAt(buf[:min(int64(len(buf)), size-pos)], pos)
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}

			if j := bytes.Index(buf[:m], token); j >= 0 {
				boundaries[i] = pos + int64(j)
				break
			}

			if m < len(buf) {
				boundaries[i] = size
				break
			}

			pos += int64(m - overlap)
		}
	}

	slices.Sort(boundaries)
	return slices.Compact(boundaries), nil
}

// UniformBoundaries splits size bytes into n evenly spaced ranges. The
// returned offsets are sorted, unique, and include 0 and size.
func UniformBoundaries(size int64, n int) []int64 {
	if size <= 0 {
		return []int64{0}
	}

	if n <= 0 {
		return []int64{0, size}
	}

	chunkSize := max(1, size/int64(n))
	boundaries := []int64{0}
	for i := 1; i < n; i++ {
		boundaries = append(boundaries, min(size, int64(i)*chunkSize))
	}
	boundaries = append(boundaries, size)

	slices.Sort(boundaries)
	return slices.Compact(boundaries)
}
