package llm

// ModelCloner is an optional interface that providers can implement to
// support lightweight per-call model overrides without constructing a full
// second provider. The returned provider shares credentials and transport with
// the original but directs calls to the given model.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// WithModel returns a provider for model when p supports cloning, or p
// itself otherwise. An empty model returns p.
func WithModel(p Provider, model string) Provider {
	if model == "" || model == p.GetModel() {
		return p
	}
	if c, ok := p.(ModelCloner); ok {
		return c.CloneWithModel(model)
	}
	return p
}
