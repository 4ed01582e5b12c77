package facade

import "context"

// Composite dispatches each capability to the first backend in an ordered
// list that supports it. It satisfies Facade itself, so composites compose;
// Chain flattens nested composites at construction, keeping dispatch a
// single scan over the backend list rather than a recursive walk.
type Composite struct {
	backends []Facade
}

// Chain builds a Composite from the given facades in order. Composite
// arguments are expanded into their backend lists and nil entries are
// dropped.
func Chain(facades ...Facade) *Composite {
	flat := make([]Facade, 0, len(facades))
	for _, f := range facades {
		switch v := f.(type) {
		case nil:
		case *Composite:
			flat = append(flat, v.backends...)
		default:
			flat = append(flat, f)
		}
	}
	return &Composite{backends: flat}
}

// Backends returns a copy of the flattened backend list.
func (c *Composite) Backends() []Facade {
	return append([]Facade(nil), c.backends...)
}

func (c *Composite) Pid() Result[int] {
	for _, b := range c.backends {
		if r := b.Pid(); r.IsSupported() {
			return r
		}
	}
	return Unsupported[int]()
}

func (c *Composite) KillGracefully(ctx context.Context, tree bool) Result[error] {
	for _, b := range c.backends {
		if r := b.KillGracefully(ctx, tree); r.IsSupported() {
			return r
		}
	}
	return Unsupported[error]()
}

func (c *Composite) KillForcefully(ctx context.Context, tree bool) Result[error] {
	for _, b := range c.backends {
		if r := b.KillForcefully(ctx, tree); r.IsSupported() {
			return r
		}
	}
	return Unsupported[error]()
}

func (c *Composite) NotifyExit(fn func(code int)) Result[struct{}] {
	for _, b := range c.backends {
		if r := b.NotifyExit(fn); r.IsSupported() {
			return r
		}
	}
	return Unsupported[struct{}]()
}
