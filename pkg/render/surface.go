package render

import "github.com/zhaozixinnn/drawisthintv/pkg/overlay"

var _ overlay.Surface = (*Surface)(nil)

// Surface is the terminal viewport handed to the scheduler. Every comment
// is one row tall whatever its font size.
type Surface struct {
	width, height int
}

// NewSurface returns a surface of the given size.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Resize changes the viewport. The scheduler picks it up on its next frame.
func (s *Surface) Resize(width, height int) {
	s.width = max(width, 0)
	s.height = max(height, 0)
}

// Size implements overlay.Surface.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// Measure implements overlay.Surface.
func (s *Surface) Measure(text string, _ int) (int, int) {
	return VisibleLen(sanitize(text)), 1
}
