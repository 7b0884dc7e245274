package core

// AccessType controls which groups may reference a model.
type AccessType string

// Access type constants.
const (
	AccessPrivate   AccessType = "private"
	AccessProtected AccessType = "protected"
	AccessPublic    AccessType = "public"
)

// IsValid reports whether a is a known access type.
func (a AccessType) IsValid() bool {
	switch a {
	case AccessPrivate, AccessProtected, AccessPublic:
		return true
	}
	return false
}

// HookType names the two model hook slots. The values are the wire keys.
type HookType string

// Hook type constants.
const (
	HookPre  HookType = "pre-hook"
	HookPost HookType = "post-hook"
)

// HookTypes lists every hook slot in declaration order.
var HookTypes = []HookType{HookPre, HookPost}
