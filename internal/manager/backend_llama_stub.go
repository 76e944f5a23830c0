//go:build !llama

package manager

import (
	"context"

	"chatd/internal/catalog"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

// llamaBackend refuses to load without the 'llama' build tag so default
// builds stay CGO-free.
type llamaBackend struct{}

func NewLlamaBackend(threads int) Backend { return llamaBackend{} }

func (llamaBackend) Load(ctx context.Context, d catalog.Descriptor) (Model, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
