// Package corpus counts pretoken and special token frequencies over a text
// corpus, optionally scanning independent byte ranges of the file in parallel.
package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ollama/bpetrain/envconfig"
	"github.com/ollama/bpetrain/logutil"
	"github.com/ollama/bpetrain/pretokenize"
)

// DefaultMinParallelSize is the corpus size below which counting always runs
// on a single goroutine.
const DefaultMinParallelSize = 128_000

// Counts holds the frequency of every distinct pretoken and special token
// occurrence seen in a corpus.
type Counts struct {
	Pretokens map[string]int
	Specials  map[string]int
}

func NewCounts() *Counts {
	return &Counts{
		Pretokens: make(map[string]int),
		Specials:  make(map[string]int),
	}
}

// Add sums other into c key by key. Add is commutative and associative so the
// order ranges are combined in does not change the result.
func (c *Counts) Add(other *Counts) {
	for k, v := range other.Pretokens {
		c.Pretokens[k] += v
	}

	for k, v := range other.Specials {
		c.Specials[k] += v
	}
}

// Len is the number of distinct pretokens and special tokens.
func (c *Counts) Len() int {
	return len(c.Pretokens) + len(c.Specials)
}

// Clone returns a deep copy of c.
func (c *Counts) Clone() *Counts {
	return &Counts{
		Pretokens: maps.Clone(c.Pretokens),
		Specials:  maps.Clone(c.Specials),
	}
}

func (c *Counts) count(p *pretokenize.Pretokenizer, text string) {
	for special, s := range p.All(text) {
		if special {
			c.Specials[s]++
		} else {
			c.Pretokens[s]++
		}
	}
}

type Options struct {
	// Workers is the number of ranges counted concurrently. Zero falls back
	// to BPE_WORKERS, then to min(8, number of CPUs).
	Workers int

	// MinParallelSize is the smallest corpus, in bytes, that is split into
	// ranges. Zero means DefaultMinParallelSize.
	MinParallelSize int64
}

// Workers resolves the worker count: an explicit hint, then the BPE_WORKERS
// override, then min(8, number of CPUs).
func Workers(hint int) int {
	if hint > 0 {
		return hint
	}

	if n := envconfig.Workers(); n > 0 {
		return int(n)
	}

	return min(8, max(1, runtime.NumCPU()))
}

// Count pretokenizes the corpus at path and returns how often each pretoken
// and each special token occurs. Corpora of at least opts.MinParallelSize
// bytes are split into ranges aligned on the first special token, or evenly
// when there are none, and the ranges are counted concurrently. Invalid UTF-8
// is dropped. The result is the same for any worker count as long as no
// range boundary cuts through a pretoken.
func Count(ctx context.Context, path string, specials []string, opts Options) (*Counts, error) {
	p, err := pretokenize.New(specials)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	workers := Workers(opts.Workers)
	minSize := opts.MinParallelSize
	if minSize <= 0 {
		minSize = DefaultMinParallelSize
	}

	start := time.Now()
	var counts *Counts
	if workers <= 1 || fi.Size() < minSize {
		slog.Debug("counting corpus", "path", path, "size", fi.Size(), "workers", 1)
		counts, err = countFile(path, p)
	} else {
		var token []byte
		if i := firstSpecial(specials); i >= 0 {
			token = []byte(specials[i])
		}

		counts, err = countParallel(ctx, path, fi.Size(), p, token, workers)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("counted corpus", "pretokens", len(counts.Pretokens), "specials", len(counts.Specials), "duration", time.Since(start))
	return counts, nil
}

func firstSpecial(specials []string) int {
	for i, s := range specials {
		if s != "" {
			return i
		}
	}

	return -1
}

func countFile(path string, p *pretokenize.Pretokenizer) (*Counts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := NewCounts()
	c.count(p, decode(b))
	return c, nil
}

func countParallel(ctx context.Context, path string, size int64, p *pretokenize.Pretokenizer, token []byte, workers int) (*Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var boundaries []int64
	if len(token) > 0 {
		boundaries, err = FindChunkBoundaries(f, size, workers, token)
		if err != nil {
			return nil, fmt.Errorf("find chunk boundaries: %w", err)
		}
	} else {
		boundaries = UniformBoundaries(size, workers)
	}

	ranges := len(boundaries) - 1
	slog.Debug("counting corpus", "path", path, "size", size, "workers", min(workers, ranges), "ranges", ranges)

	results := make([]*Counts, ranges)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range ranges {
		start, end := boundaries[i], boundaries[i+1]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			c, err := countRange(f, start, end, p)
			if err != nil {
				return fmt.Errorf("count range [%d, %d): %w", start, end, err)
			}

			logutil.Trace("counted range", "start", start, "end", end, "pretokens", len(c.Pretokens))
			results[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := NewCounts()
	for _, c := range results {
		counts.Add(c)
	}

	return counts, nil
}

// countRange counts the bytes in [start, end) of r in isolation.
func countRange(r io.ReaderAt, start, end int64, p *pretokenize.Pretokenizer) (*Counts, error) {
	c := NewCounts()
	if end <= start {
		return c, nil
	}

	b, err := io.ReadAll(io.NewSectionReader(r, start, end-start))
	if err != nil {
		return nil, err
	}

	c.count(p, decode(b))
	return c, nil
}

// decode interprets b as UTF-8, dropping any invalid byte sequences.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}
