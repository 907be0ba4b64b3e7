package app

// CycleResultForward moves the search cursor to the next result, wrapping
// around to the first after the last.
func (m *Model) CycleResultForward() {
	if len(m.results) == 0 {
		return
	}
	m.cursor = (m.cursor + 1) % len(m.results)
}

// CycleResultBackward moves the search cursor to the previous result,
// wrapping around to the last before the first.
func (m *Model) CycleResultBackward() {
	if len(m.results) == 0 {
		return
	}
	m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
}

// FocusResult moves the cursor to result i. Out-of-range indexes are
// ignored.
func (m *Model) FocusResult(i int) {
	if i >= 0 && i < len(m.results) {
		m.cursor = i
	}
}
