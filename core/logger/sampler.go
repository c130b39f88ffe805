package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through num out of every den calls. A zero ratio lets everything through.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	calls atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.set(num, den)
	return s
}

func (s *sampler) set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	num = min(num, den)
	s.ratio.Store(uint64(num)<<32 | uint64(den))
	s.calls.Store(0)
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.calls.Add(1)-1)%den < num
}

// parseRatio reads "n/d" or "d" (meaning 1/d). The second result is false for
// malformed input; "0" or "0/0" disable sampling.
func parseRatio(ratio string) (num, den int, ok bool) {
	ratio = strings.TrimSpace(ratio)
	if a, b, found := strings.Cut(ratio, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || n < 0 || d < 0 {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(ratio)
	if err != nil || d < 0 {
		return 0, 0, false
	}
	if d == 0 {
		return 0, 0, true
	}
	return 1, d, true
}
