package pipeline

import "io"

// closers collects resources that must be released when the pipeline
// is torn down (only Lua-backed stages hold any).
type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build constructs a Pipeline from optional pre/post Lua script
// paths. Empty paths resolve to Identity. The returned closer
// releases any loaded Lua interpreters.
func Build(preScript, postScript string) (*Pipeline, io.Closer, error) {
	toClose := closers{}
	pre := Transform(Identity)
	post := Transform(Identity)

	if preScript != "" {
		lt, err := NewLuaTransform(preScript, "transform")
		if err != nil {
			return nil, nil, err
		}
		pre = lt.Run
		toClose = append(toClose, lt)
	}
	if postScript != "" {
		lt, err := NewLuaTransform(postScript, "transform")
		if err != nil {
			_ = toClose.Close()
			return nil, nil, err
		}
		post = lt.Run
		toClose = append(toClose, lt)
	}

	return New(pre, post), toClose, nil
}
