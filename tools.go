//go:build tools
// +build tools

package flowtrace

import (
	_ "github.com/maxbrunsfeld/counterfeiter/v6"
)
