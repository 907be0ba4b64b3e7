package overlay

// Sprite is the pooled render handle for one on-screen instance. The
// scheduler writes position and opacity every frame; a renderer reads it.
type Sprite struct {
	Text    string
	Color   string
	Size    int
	X, Y    float64
	Width   int
	Height  int
	Opacity float64
	Visible bool
}

// Reset returns the sprite to its neutral state before it is pooled.
func (s *Sprite) Reset() {
	*s = Sprite{}
}

func newSprite() *Sprite {
	return &Sprite{}
}
