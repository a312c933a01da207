package claudecontract

// PermissionMode is a value for --permission-mode.
type PermissionMode string

// PermissionBypassPermissions bypasses all permission checks. The bridge
// always runs in this mode because nobody can answer a prompt from chat.
const PermissionBypassPermissions PermissionMode = "bypassPermissions"

// String returns the flag value.
func (m PermissionMode) String() string {
	return string(m)
}
