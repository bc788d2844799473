package bpe

import (
	"bytes"
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/ollama/bpetrain/corpus"
	"github.com/ollama/bpetrain/logutil"
)

// LogInterval is how many merges pass between progress messages.
const LogInterval = 1000

// pair is two adjacent symbol ids.
type pair struct {
	a, b int32
}

// candidate is a pair and its count at the time it was queued. It is stale
// once the pair's count in the pair table differs.
type candidate struct {
	pair  pair
	count int
}

type learner struct {
	vocabSize int
	vocab     Vocabulary
	merges    []Merge
	specials  map[string]int32

	seqs *sequences

	// pairs is the weighted count of every adjacent pair across seqs. It is
	// updated as sequences change and never holds a zero count.
	pairs map[pair]int
	queue *binaryheap.Heap[candidate]
}

func newLearner(counts *corpus.Counts, vocabSize int, specials []string) *learner {
	l := &learner{
		vocabSize: vocabSize,
		vocab:     make(Vocabulary, 256),
		specials:  make(map[string]int32),
		seqs:      newSequences(),
		pairs:     make(map[pair]int),
	}

	for i := range l.vocab {
		l.vocab[i] = []byte{byte(i)}
	}

	for _, s := range specials {
		if _, ok := l.specials[s]; ok || s == "" {
			continue
		}

		if len(l.vocab) >= vocabSize {
			break
		}

		l.specials[s] = int32(len(l.vocab))
		l.vocab = append(l.vocab, []byte(s))
	}

	if counts == nil {
		counts = corpus.NewCounts()
	}

	for _, s := range slices.Sorted(maps.Keys(counts.Pretokens)) {
		if s == "" {
			continue
		}

		ids := make([]int32, len(s))
		for i := range len(s) {
			ids[i] = int32(s[i])
		}

		l.seqs.add(ids, counts.Pretokens[s])
	}

	for _, s := range slices.Sorted(maps.Keys(counts.Specials)) {
		if id, ok := l.specials[s]; ok {
			l.seqs.add([]int32{id}, counts.Specials[s])
		}
	}

	for _, seq := range l.seqs.items {
		l.apply(seq.ids, seq.freq, nil)
	}

	l.queue = binaryheap.NewWith(l.compare)
	l.requeue()

	slog.Debug("learning merges", "sequences", l.seqs.live(), "pairs", len(l.pairs), "vocab", len(l.vocab), "target", vocabSize)
	return l
}

// compare orders candidates so the heap pops the highest count first. Ties
// go to the pair whose first symbol has the greater bytes, then the pair whose
// second symbol does. Distinct symbols can share bytes, so ids settle the rest.
func (l *learner) compare(x, y candidate) int {
	if c := cmp.Compare(y.count, x.count); c != 0 {
		return c
	}

	if c := bytes.Compare(l.vocab[y.pair.a], l.vocab[x.pair.a]); c != 0 {
		return c
	}

	if c := bytes.Compare(l.vocab[y.pair.b], l.vocab[x.pair.b]); c != 0 {
		return c
	}

	if c := cmp.Compare(y.pair.a, x.pair.a); c != 0 {
		return c
	}

	return cmp.Compare(y.pair.b, x.pair.b)
}

// requeue rebuilds the queue from the pair table, dropping stale candidates.
func (l *learner) requeue() {
	l.queue.Clear()
	for p, n := range l.pairs {
		l.queue.Push(candidate{pair: p, count: n})
	}
}

// apply adds freq times each adjacent pair in ids to the pair table. A
// negative freq removes them. Pairs whose count changed are added to touched
// when it is not nil.
func (l *learner) apply(ids []int32, freq int, touched map[pair]struct{}) {
	for i := 1; i < len(ids); i++ {
		p := pair{ids[i-1], ids[i]}
		if n := l.pairs[p] + freq; n != 0 {
			l.pairs[p] = n
		} else {
			delete(l.pairs, p)
		}

		if touched != nil {
			touched[p] = struct{}{}
		}
	}
}

// best returns the most frequent pair, discarding stale candidates.
func (l *learner) best() (candidate, bool) {
	for !l.queue.Empty() {
		c, _ := l.queue.Pop()
		if n, ok := l.pairs[c.pair]; ok && n == c.count {
			return c, true
		}
	}

	return candidate{}, false
}

// step learns one merge. It reports false once the vocabulary is full or no
// pairs remain.
func (l *learner) step() bool {
	if len(l.vocab) >= l.vocabSize || len(l.pairs) == 0 {
		return false
	}

	c, ok := l.best()
	if !ok || c.count <= 0 {
		return false
	}

	id := int32(len(l.vocab))
	left, right := l.vocab[c.pair.a], l.vocab[c.pair.b]
	l.vocab = append(l.vocab, bytes.Join([][]byte{left, right}, nil))
	l.merges = append(l.merges, Merge{Left: left, Right: right})

	touched := make(map[pair]struct{})
	for i := range l.seqs.items {
		seq := l.seqs.items[i]
		if seq.freq == 0 {
			continue
		}

		ids, ok := merge(seq.ids, c.pair, id)
		if !ok {
			continue
		}

		l.apply(seq.ids, -seq.freq, touched)
		l.apply(ids, seq.freq, touched)
		l.seqs.replace(i, ids)
	}

	delete(l.pairs, c.pair)
	l.seqs.compact()

	if l.queue.Size() > 2*len(l.pairs)+1024 {
		l.requeue()
	} else {
		for p := range touched {
			if n, ok := l.pairs[p]; ok {
				l.queue.Push(candidate{pair: p, count: n})
			}
		}
	}

	logutil.Trace("merged", "id", id, "pair", logutil.Pair{left, right}, "count", c.count)
	if len(l.merges)%LogInterval == 0 {
		slog.Debug("learning merges", "merges", len(l.merges), "vocab", len(l.vocab), "target", l.vocabSize, "pairs", len(l.pairs), "sequences", l.seqs.live())
	}

	return true
}

func (l *learner) result() *Result {
	return &Result{
		Vocab:    l.vocab,
		Merges:   l.merges,
		Specials: l.specials,
	}
}

// merge replaces every non-overlapping occurrence of p in ids, scanning left
// to right, with id. It reports false and returns ids unchanged when p does
// not occur.
func merge(ids []int32, p pair, id int32) ([]int32, bool) {
	i := 0
	for ; i+1 < len(ids); i++ {
		if ids[i] == p.a && ids[i+1] == p.b {
			break
		}
	}

	if i+1 >= len(ids) {
		return ids, false
	}

	out := make([]int32, i, len(ids)-1)
	copy(out, ids[:i])
	for i < len(ids) {
		if i+1 < len(ids) && ids[i] == p.a && ids[i+1] == p.b {
			out = append(out, id)
			i += 2
		} else {
			out = append(out, ids[i])
			i++
		}
	}

	return out, true
}
