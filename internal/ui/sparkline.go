package ui

import "strings"

// Sparkline renders recent samples as a row of Unicode block characters.
type Sparkline struct {
	samples []float64
	width   int
	head    int
	count   int
	max     float64
}

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// NewSparkline creates a sparkline holding width samples (default 60).
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 60
	}
	return &Sparkline{
		samples: make([]float64, width),
		width:   width,
	}
}

// Add appends a sample, overwriting the oldest once full.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % s.width
	s.count++
	if value > s.max {
		s.max = value
	}
	if s.count%s.width == 0 {
		s.recalculateMax()
	}
}

func (s *Sparkline) recalculateMax() {
	s.max = 0
	for _, v := range s.samples {
		s.max = max(s.max, v)
	}
	if s.max < 1 {
		s.max = 1
	}
}

// Render renders every slot, oldest first.
func (s *Sparkline) Render() string {
	return s.RenderWithWidth(s.width)
}

// RenderWithWidth renders the newest width samples, padded with spaces
// on the right when fewer have been recorded. A width outside
// (0, capacity] means full capacity.
func (s *Sparkline) RenderWithWidth(width int) string {
	if width <= 0 || width > s.width {
		width = s.width
	}
	if s.count == 0 {
		return strings.Repeat(string(SparklineChars[0]), width)
	}
	if s.max <= 0 {
		s.recalculateMax()
	}

	recent := s.recent()
	if len(recent) > width {
		recent = recent[len(recent)-width:]
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	for _, v := range recent {
		sb.WriteRune(s.bar(v))
	}
	for i := len(recent); i < width; i++ {
		sb.WriteRune(' ')
	}
	return sb.String()
}

// recent returns recorded samples oldest first.
func (s *Sparkline) recent() []float64 {
	if s.count < s.width {
		return s.samples[:s.count]
	}
	out := make([]float64, 0, s.width)
	out = append(out, s.samples[s.head:]...)
	return append(out, s.samples[:s.head]...)
}

func (s *Sparkline) bar(v float64) rune {
	idx := int(v / s.max * float64(len(SparklineChars)-1))
	idx = max(0, min(idx, len(SparklineChars)-1))
	return SparklineChars[idx]
}

// Clear resets the sparkline.
func (s *Sparkline) Clear() {
	clear(s.samples)
	s.head = 0
	s.count = 0
	s.max = 0
}

// Count returns the number of samples added.
func (s *Sparkline) Count() int {
	return s.count
}

// Max returns the current scaling maximum.
func (s *Sparkline) Max() float64 {
	return s.max
}
