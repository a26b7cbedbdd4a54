// Package history keeps a bounded close-price series per traded pair.
package history

// Series is a fixed-capacity circular buffer of closing prices, oldest first.
// Appending past capacity overwrites the oldest entry.
type Series struct {
	buf  []float64
	cap  int
	pos  int // next write position
	full bool
}

// NewSeries creates a series holding at most capacity closes.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 100
	}
	return &Series{
		buf: make([]float64, capacity),
		cap: capacity,
	}
}

// Seed replaces the series wholesale with a chronologically ordered batch.
// Oversized batches keep only the newest capacity closes.
func (s *Series) Seed(closes []float64) {
	s.pos = 0
	s.full = false
	if len(closes) > s.cap {
		closes = closes[len(closes)-s.cap:]
	}
	n := copy(s.buf, closes)
	if n == s.cap {
		s.full = true
	} else {
		s.pos = n
	}
}

// Append pushes the newest close, evicting the oldest when full.
func (s *Series) Append(price float64) {
	s.buf[s.pos] = price
	s.pos = (s.pos + 1) % s.cap
	if s.pos == 0 && !s.full {
		s.full = true
	}
}

// Snapshot returns a copy of the series in oldest-to-newest order.
func (s *Series) Snapshot() []float64 {
	n := s.Len()
	out := make([]float64, n)
	start := 0
	if s.full {
		start = s.pos
	}
	for i := 0; i < n; i++ {
		out[i] = s.buf[(start+i)%s.cap]
	}
	return out
}

// Len reports how many closes the series currently holds.
func (s *Series) Len() int {
	if s.full {
		return s.cap
	}
	return s.pos
}

// Store maps each tracked pair to its own series. The pair set is fixed at
// construction; each series is owned by its pair's processing path.
type Store struct {
	capacity int
	series   map[string]*Series
}

// NewStore creates one empty series per pair.
func NewStore(capacity int, pairs []string) *Store {
	st := &Store{capacity: capacity, series: make(map[string]*Series, len(pairs))}
	for _, pair := range pairs {
		st.series[pair] = NewSeries(capacity)
	}
	return st
}

// Get returns the series for pair, creating one for unknown pairs.
func (st *Store) Get(pair string) *Series {
	s, ok := st.series[pair]
	if !ok {
		s = NewSeries(st.capacity)
		st.series[pair] = s
	}
	return s
}

// Pairs lists the tracked pair identifiers.
func (st *Store) Pairs() []string {
	out := make([]string, 0, len(st.series))
	for pair := range st.series {
		out = append(out, pair)
	}
	return out
}
