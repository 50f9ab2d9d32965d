package renderer

import "strings"

// Role is the part a Chromium child process plays in the browser.
type Role int

const (
	// RoleOther covers GPU, network, utility and any unknown process.
	RoleOther Role = iota
	// RoleRenderer runs page content and JavaScript.
	RoleRenderer
	// RoleExtension is a renderer hosting extensions.
	RoleExtension
	// RoleSandboxHelper is the zygote that forks sandboxed renderers.
	RoleSandboxHelper
)

const (
	typeRenderer     = "--type=renderer"
	typeZygote       = "--type=zygote"
	extensionProcess = "--extension-process"
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleRenderer:
		return "renderer"
	case RoleExtension:
		return "extension"
	case RoleSandboxHelper:
		return "zygote"
	}

	return "other"
}

// Classify determines the [Role] of a process from its command line.
//
// Chromium rewrites the process title of its children, so /proc may report
// the whole command line as a single argument. Each argument is therefore
// split on whitespace before matching.
func Classify(args []string) Role {
	var renderer, extension, zygote bool

	for _, arg := range args {
		for _, tok := range strings.Fields(arg) {
			switch tok {
			case typeRenderer:
				renderer = true
			case extensionProcess:
				extension = true
			case typeZygote:
				zygote = true
			}
		}
	}

	switch {
	case zygote:
		return RoleSandboxHelper
	case renderer && extension:
		return RoleExtension
	case renderer:
		return RoleRenderer
	}

	return RoleOther
}
