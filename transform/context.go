package transform

// WalkContext tracks the position of the parallel spec/document walk: the
// chain of keys descended from the root and the document node at each step.
// Expression arguments resolve &n and @(n,...) references against it.
//
// A context belongs to one walk on one goroutine; the compiled spec it walks
// is the shared, immutable piece.
type WalkContext struct {
	frames []frame
}

type frame struct {
	key    string
	node   interface{}
	exists bool
}

// NewWalkContext starts a context at the document root.
func NewWalkContext(root map[string]interface{}) *WalkContext {
	return &WalkContext{frames: []frame{{key: "root", node: root, exists: true}}}
}

func (c *WalkContext) push(key string, node interface{}, exists bool) {
	c.frames = append(c.frames, frame{key: key, node: node, exists: exists})
}

func (c *WalkContext) pop() {
	c.frames = c.frames[:len(c.frames)-1]
}

// KeyUp returns the walked key n levels above the current one; &0 is the
// current key.
func (c *WalkContext) KeyUp(n int) (string, bool) {
	idx := len(c.frames) - 1 - n
	// The root frame's synthetic key is not addressable.
	if idx <= 0 {
		return "", false
	}
	return c.frames[idx].key, true
}

// NodeUp returns the document node n levels above the matched value; level 0
// is the matched value itself, level 1 the object containing it.
func (c *WalkContext) NodeUp(n int) (interface{}, bool) {
	idx := len(c.frames) - 1 - n
	if idx < 0 {
		return nil, false
	}
	f := c.frames[idx]
	return f.node, f.exists
}

// MatchedValue returns the value at the current location, reporting false
// when the input document has no such key.
func (c *WalkContext) MatchedValue() (interface{}, bool) {
	return c.NodeUp(0)
}
