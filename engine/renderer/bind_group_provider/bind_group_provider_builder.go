package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel sets the debug label prefix of every bind group the provider creates.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProviderOption: a function that sets the label for this provider
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}
