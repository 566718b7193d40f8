//go:build tools
// +build tools

// Tool dependencies, never built into the module. Importing mockgen here
// keeps its version pinned in go.mod so `go generate` works the same on a
// fresh checkout.
package roomchat

import (
	_ "go.uber.org/mock/mockgen"
)
