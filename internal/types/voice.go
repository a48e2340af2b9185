package types

// Voice is a configured authorial identity used to condition rewrite prompts.
type Voice struct {
	ID             string `json:"id" yaml:"id" validate:"required"`
	Name           string `json:"name" yaml:"name" validate:"required"`
	Description    string `json:"description" yaml:"description"`
	StyleDirective string `json:"style_directive" yaml:"style_directive" validate:"required"`
}
