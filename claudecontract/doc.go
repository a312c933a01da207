// Package claudecontract is the single place where the bridge spells out its
// contract with the Claude CLI binary: flag names, stream-json event types,
// content block types, permission modes, output formats, and the CLI version
// the bridge was tested against.
//
// When the CLI changes a flag or a JSON field, only this package should need
// to change.
//
// # Invocation
//
// The bridge always runs the CLI non-interactively with a fixed flag set:
//
//	claude --print [--continue] --permission-mode bypassPermissions \
//	    --output-format stream-json --verbose
//
// The prompt is written to the CLI's standard input. [PrintModeArgs] builds
// that argument list.
//
// # Stream events
//
// With --output-format stream-json the CLI writes one JSON object per line:
//
//	{"type":"system","subtype":"init","session_id":"...","model":"...","cwd":"..."}
//	{"type":"assistant","message":{"content":[{"type":"text","text":"..."}]}}
//	{"type":"result","subtype":"success","result":"..."}
//
// The type and subtype strings are the Event* and Subtype* constants.
//
// # Version Compatibility
//
// TestedCLIVersion names the CLI version this contract was checked against.
// CheckVersion logs a warning when the installed CLI is newer:
//
//	v := claudecontract.CheckVersion(ctx, "claude", slog.Default())
package claudecontract
