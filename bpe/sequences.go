package bpe

import (
	"encoding/binary"
)

// sequence is one distinct symbol id sequence and how often it occurs.
// Removed sequences keep their slot with a zero freq until compaction.
type sequence struct {
	ids  []int32
	freq int
	key  string
}

// sequences is the token count table. Every live entry holds a distinct id
// sequence.
type sequences struct {
	items []sequence
	index map[string]int
	dead  int
}

func newSequences() *sequences {
	return &sequences{index: make(map[string]int)}
}

func key(ids []int32) string {
	b := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		b = binary.LittleEndian.AppendUint32(b, uint32(id))
	}
	return string(b)
}

// add counts freq more occurrences of ids.
func (s *sequences) add(ids []int32, freq int) {
	k := key(ids)
	if i, ok := s.index[k]; ok {
		s.items[i].freq += freq
		return
	}

	s.index[k] = len(s.items)
	s.items = append(s.items, sequence{ids: ids, freq: freq, key: k})
}

// replace swaps the ids of entry i. If another entry already holds ids the
// two are coalesced and i is removed.
func (s *sequences) replace(i int, ids []int32) {
	delete(s.index, s.items[i].key)

	k := key(ids)
	if j, ok := s.index[k]; ok {
		s.items[j].freq += s.items[i].freq
		s.items[i] = sequence{}
		s.dead++
		return
	}

	s.index[k] = i
	s.items[i] = sequence{ids: ids, freq: s.items[i].freq, key: k}
}

// compact drops removed entries once they make up half the table.
func (s *sequences) compact() {
	if s.dead == 0 || s.dead < len(s.items)/2 {
		return
	}

	items := make([]sequence, 0, len(s.items)-s.dead)
	for _, item := range s.items {
		if item.freq > 0 {
			s.index[item.key] = len(items)
			items = append(items, item)
		}
	}

	s.items, s.dead = items, 0
}

// live returns the number of entries in the table.
func (s *sequences) live() int {
	return len(s.items) - s.dead
}
