// Package bpe learns a byte-level byte pair encoding vocabulary and its
// ordered merge list from pretoken frequencies.
package bpe

import (
	"context"
	"log/slog"
	"time"

	"github.com/ollama/bpetrain/corpus"
)

// Vocabulary maps a symbol id, its index, to the bytes it stands for. Ids
// 0-255 are single bytes, followed by special tokens and then merge products.
type Vocabulary [][]byte

// Merge records that Left and Right were combined into a new symbol. Merges
// are applied in the order they were learned.
type Merge struct {
	Left, Right []byte
}

type Result struct {
	Vocab  Vocabulary
	Merges []Merge

	// Specials maps each special token that received an id to that id.
	Specials map[string]int32
}

// Train counts the corpus at path and learns merges until the vocabulary
// holds vocabSize entries or no adjacent pairs remain.
func Train(ctx context.Context, path string, vocabSize int, specials []string, opts corpus.Options) (*Result, error) {
	start := time.Now()
	counts, err := corpus.Count(ctx, path, specials, opts)
	if err != nil {
		return nil, err
	}

	r := Learn(counts, vocabSize, specials)
	slog.Debug("trained vocabulary", "vocab", len(r.Vocab), "merges", len(r.Merges), "specials", len(r.Specials), "duration", time.Since(start))
	return r, nil
}

// Learn builds the vocabulary from counted pretokens. Byte values take ids
// 0-255 and distinct special tokens take the following ids in order while
// room remains; specials left without an id are not counted. Merges are then
// learned one at a time, always picking the most frequent adjacent pair.
func Learn(counts *corpus.Counts, vocabSize int, specials []string) *Result {
	l := newLearner(counts, vocabSize, specials)
	for l.step() {
	}

	return l.result()
}
