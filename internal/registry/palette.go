package registry

// DefaultPalette is a set of ANSI 256 colors that stay distinguishable on
// both dark and light terminals.
var DefaultPalette = []string{"39", "170", "208", "42", "220", "141", "203", "51"}

type slot struct {
	owners  int
	cooling bool
	freedAt uint64
}

// Palette hands out colors round-robin. A slot whose last owner was released
// at tick T is not handed out again before tick T+1. When no slot is free the
// first occupied slot after the cursor is shared.
type Palette struct {
	colors []string
	slots  []slot
	cursor int
}

func NewPalette(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return &Palette{
		colors: append([]string(nil), colors...),
		slots:  make([]slot, len(colors)),
	}
}

// Acquire reserves a slot at tick and returns its index.
func (p *Palette) Acquire(tick uint64) int {
	n := len(p.slots)
	idx, shared := -1, -1
	for i := 0; i < n; i++ {
		c := (p.cursor + i) % n
		s := p.slots[c]
		if s.owners > 0 {
			if shared < 0 {
				shared = c
			}
			continue
		}
		if !s.cooling || s.freedAt < tick {
			idx = c
			break
		}
	}
	switch {
	case idx >= 0:
	case shared >= 0:
		idx = shared
	default:
		idx = p.cursor
	}
	p.slots[idx].owners++
	p.slots[idx].cooling = false
	p.cursor = (idx + 1) % n
	return idx
}

// Release gives up one reservation of slot at tick.
func (p *Palette) Release(idx int, tick uint64) {
	s := &p.slots[idx]
	if s.owners == 0 {
		return
	}
	s.owners--
	if s.owners == 0 {
		s.cooling = true
		s.freedAt = tick
	}
}

func (p *Palette) Color(idx int) string { return p.colors[idx] }

func (p *Palette) Len() int { return len(p.colors) }
