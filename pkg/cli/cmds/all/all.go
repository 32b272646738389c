// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/buspirate.go/pkg/cli/cmds/frame"
	_ "github.com/robotalks/buspirate.go/pkg/cli/cmds/pirate"
)
