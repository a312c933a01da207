// Package claudebridge relays Slack conversations to a locally installed
// Claude CLI.
//
// Each Slack channel owns at most one running CLI process. A new message
// replaces the running process, a stop keyword ends it, and the "-clear"
// prefix starts a fresh conversation instead of continuing the last one. The
// CLI's stream-json output is decoded as it arrives and posted back as
// progress, tool use and a final answer.
//
// The subpackages can be used on their own:
//
//   - claudecontract: CLI flags, stream-json event names, version detection
//   - streamjson: incremental newline-delimited JSON decoding of CLI output
//   - session: the per-key process session manager
//   - config: layered TOML/YAML/env configuration with hot reload
//   - slackbot: Socket Mode adapter and event rendering
//   - slackmcp: posting through a Slack MCP server
//
// # Quick Start
//
//	claudebridge serve --config bridge.toml
//
// Or, without Slack:
//
//	claudebridge ask "summarize the open TODOs"
//
// Embedding the manager:
//
//	import "github.com/randalmurphal/claudebridge/session"
//	m := session.NewManager(handler, session.WithWorkdir("/srv/repo"))
//	defer m.Close()
//	_ = m.SendMessage("C123", "-clear explain main.go")
package claudebridge
