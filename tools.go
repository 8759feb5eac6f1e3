//go:build tools
// +build tools

// Package tools pins code generators invoked through go generate so that
// go.mod and go.sum track them.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
