package headless

import (
	"context"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

// Disabled implements analysis.Renderer for runs where browser rendering is
// turned off. Every call returns analysis.ErrRenderingDisabled.
type Disabled struct{}

// NewDisabled creates a Disabled renderer.
func NewDisabled() Disabled {
	return Disabled{}
}

// Render always fails with analysis.ErrRenderingDisabled.
func (Disabled) Render(_ context.Context, _ string) (string, error) {
	return "", analysis.ErrRenderingDisabled
}
