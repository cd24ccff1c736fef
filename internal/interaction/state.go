// Package interaction holds the selection and chart visibility state driven
// by key presses. It knows nothing about rendering.
package interaction

// State is owned by the input handler. Sync must be called with each newly
// published enumeration before the next selection change.
type State struct {
	ids         []int
	selected    int
	hidden      map[int]bool
	totalHidden bool
}

func New() *State {
	return &State{selected: -1, hidden: make(map[int]bool)}
}

// Sync adopts a new enumeration. A selected source that is still present
// stays selected; otherwise the old index is clamped into range. Hidden
// entries for sources that disappeared are dropped.
func (s *State) Sync(ids []int) {
	prevID, hadSel := s.SelectedID()
	s.ids = append(s.ids[:0], ids...)

	present := make(map[int]int, len(ids))
	for i, id := range ids {
		present[id] = i
	}
	for id := range s.hidden {
		if _, ok := present[id]; !ok {
			delete(s.hidden, id)
		}
	}

	switch {
	case len(ids) == 0:
		s.selected = -1
	case !hadSel:
		s.selected = 0
	default:
		if i, ok := present[prevID]; ok {
			s.selected = i
		} else {
			s.selected = clamp(s.selected, 0, len(ids)-1)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Len is the size of the current enumeration.
func (s *State) Len() int { return len(s.ids) }

// Selected returns the selected index; ok is false when there are no sources.
func (s *State) Selected() (int, bool) {
	if s.selected < 0 || s.selected >= len(s.ids) {
		return 0, false
	}
	return s.selected, true
}

// SelectedID returns the id of the selected source.
func (s *State) SelectedID() (int, bool) {
	i, ok := s.Selected()
	if !ok {
		return 0, false
	}
	return s.ids[i], true
}

// SelectNext moves down, wrapping to the top.
func (s *State) SelectNext() {
	if len(s.ids) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.ids)
}

// SelectPrevious moves up, wrapping to the bottom.
func (s *State) SelectPrevious() {
	if len(s.ids) == 0 {
		return
	}
	if s.selected <= 0 {
		s.selected = len(s.ids) - 1
		return
	}
	s.selected--
}

// ToggleVisibility flips chart visibility of the selected source and
// reports whether it is now hidden.
func (s *State) ToggleVisibility() bool {
	id, ok := s.SelectedID()
	if !ok {
		return false
	}
	if s.hidden[id] {
		delete(s.hidden, id)
		return false
	}
	s.hidden[id] = true
	return true
}

// Hidden reports whether id is hidden from the chart.
func (s *State) Hidden(id int) bool { return s.hidden[id] }

// ToggleTotal flips the visibility of the aggregate series.
func (s *State) ToggleTotal() { s.totalHidden = !s.totalHidden }

func (s *State) TotalVisible() bool { return !s.totalHidden }

// View is an immutable copy of State for one render pass.
type View struct {
	Selected     int
	HasSelection bool
	Hidden       map[int]bool
	TotalVisible bool
}

func (s *State) View() View {
	v := View{TotalVisible: !s.totalHidden, Hidden: make(map[int]bool, len(s.hidden))}
	v.Selected, v.HasSelection = s.Selected()
	for id := range s.hidden {
		v.Hidden[id] = true
	}
	return v
}

// IsHidden reports whether id was hidden when the view was taken.
func (v View) IsHidden(id int) bool { return v.Hidden[id] }

// IsSelected reports whether index i was selected.
func (v View) IsSelected(i int) bool { return v.HasSelection && v.Selected == i }
