package annotate

// Tool selects which shape kind a drag produces.
type Tool string

const (
	// ToolCircle draws circles.
	ToolCircle Tool = "circle"
	// ToolArrow draws arrows.
	ToolArrow Tool = "arrow"
)

// IsValid reports whether the tool is a recognized value.
func (t Tool) IsValid() bool {
	return t == ToolCircle || t == ToolArrow
}

func (t Tool) kind() Kind {
	if t == ToolArrow {
		return KindArrow
	}
	return KindCircle
}

// SessionConfig configures a new annotation session for one photo.
type SessionConfig struct {
	ImageWidth   float64
	ImageHeight  float64
	CanvasWidth  float64
	CanvasHeight float64
	Tool         Tool
	Color        string
	// StrokeWidth is in display pixels; committed shapes store it divided
	// by the current fit scale, i.e. in image-space pixels.
	StrokeWidth float64
}

// Session is the ephemeral annotation state for one photo: current tool,
// color and width, the committed shape list, and an undo stack of
// pre-mutation snapshots. It exists only while the annotation UI is open
// and is discarded, not persisted, on cancel.
type Session struct {
	transform Transform
	tool      Tool
	color     string
	width     float64

	shapes []Shape
	undo   [][]Shape

	drawing bool
	start   Point
}

// NewSession starts a session over an empty shape list.
func NewSession(cfg SessionConfig) *Session {
	tool := cfg.Tool
	if !tool.IsValid() {
		tool = ToolCircle
	}
	color := cfg.Color
	if color == "" {
		color = "#e53935"
	}
	width := cfg.StrokeWidth
	if width <= 0 {
		width = 6
	}
	return &Session{
		transform: NewTransform(cfg.ImageWidth, cfg.ImageHeight, cfg.CanvasWidth, cfg.CanvasHeight),
		tool:      tool,
		color:     color,
		width:     width,
	}
}

// Transform exposes the current fit, for callers that render the preview.
func (s *Session) Transform() Transform {
	return s.transform
}

// SetTool switches the active tool for subsequent drags.
func (s *Session) SetTool(tool Tool) {
	if tool.IsValid() {
		s.tool = tool
	}
}

// SetColor switches the active color for subsequent drags.
func (s *Session) SetColor(color string) {
	if _, err := ParseColor(color); err == nil {
		s.color = color
	}
}

// SetStrokeWidth switches the active display-pixel stroke width.
func (s *Session) SetStrokeWidth(width float64) {
	if width > 0 {
		s.width = width
	}
}

// Resize recomputes the fit after a canvas size or device-pixel-ratio
// change. Committed shapes are unaffected: they live in normalized
// coordinates and simply re-project.
func (s *Session) Resize(canvasW, canvasH float64) {
	s.transform = NewTransform(s.transform.ImageW, s.transform.ImageH, canvasW, canvasH)
}

// PointerDown records the drag start in canvas coordinates.
func (s *Session) PointerDown(p Point) {
	s.drawing = true
	s.start = p
}

// PointerMove returns the in-progress shape from the drag start to the
// current point, for the preview layer. The second result is false when no
// drag is active. The committed layer is untouched.
func (s *Session) PointerMove(p Point) (Shape, bool) {
	if !s.drawing {
		return Shape{}, false
	}
	return s.buildShape(p), true
}

// PointerUp commits the drag: the pre-mutation shape list is pushed onto
// the undo stack and the new shape, converted to normalized coordinates
// with its width divided by the current scale, is appended. The second
// result is false when no drag was active.
func (s *Session) PointerUp(p Point) (Shape, bool) {
	if !s.drawing {
		return Shape{}, false
	}
	s.drawing = false
	shape := s.buildShape(p)
	s.snapshot()
	s.shapes = append(s.shapes, shape)
	return shape, true
}

// Cancel aborts an active drag without committing.
func (s *Session) Cancel() {
	s.drawing = false
}

// Undo replaces the shape list with the most recent snapshot. It is a
// no-op when the stack is empty and reports whether anything changed.
// Already-exported photo bytes are never affected; undo is only meaningful
// before the session is saved.
func (s *Session) Undo() bool {
	if len(s.undo) == 0 {
		return false
	}
	s.shapes = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return true
}

// ClearAll snapshots then empties the shape list, so a single undo
// restores it.
func (s *Session) ClearAll() {
	s.snapshot()
	s.shapes = []Shape{}
}

// Shapes returns a copy of the committed shape list.
func (s *Session) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// RenderCommitted replays every committed shape onto the surface in canvas
// coordinates. Call after a commit, an undo, or a resize; the preview layer
// is rendered separately so pointer moves never force a full replay.
func (s *Session) RenderCommitted(surface Surface) {
	for _, shape := range s.shapes {
		DrawShape(surface, shape, s.transform)
	}
}

// RenderPreview draws only the in-progress shape onto the (cleared)
// preview surface.
func (s *Session) RenderPreview(surface Surface, current Point) {
	shape, ok := s.PointerMove(current)
	if !ok {
		return
	}
	DrawShape(surface, shape, s.transform)
}

func (s *Session) buildShape(end Point) Shape {
	widthImage := s.width
	if s.transform.Scale > 0 {
		widthImage = s.width / s.transform.Scale
	}
	return Shape{
		Kind:  s.tool.kind(),
		From:  s.transform.ToNormalized(s.start),
		To:    s.transform.ToNormalized(end),
		Color: s.color,
		Width: widthImage,
	}
}

func (s *Session) snapshot() {
	prior := make([]Shape, len(s.shapes))
	copy(prior, s.shapes)
	s.undo = append(s.undo, prior)
}
