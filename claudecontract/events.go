package claudecontract

// Stream event types from CLI stream-json output.
const (
	// EventTypeSystem is used for init, hook_response, and compact_boundary events.
	EventTypeSystem = "system"

	// EventTypeAssistant is for assistant messages (model responses).
	EventTypeAssistant = "assistant"

	// EventTypeResult is the final result message with stats.
	EventTypeResult = "result"
)

// SubtypeInit is the system event emitted at session start.
const SubtypeInit = "init"

// Result subtypes indicating how the run ended. Every subtype other than
// success starts with ResultSubtypeErrorPrefix.
const (
	ResultSubtypeSuccess              = "success"
	ResultSubtypeError                = "error"
	ResultSubtypeErrorMaxTurns        = "error_max_turns"
	ResultSubtypeErrorDuringExecution = "error_during_execution"
	ResultSubtypeErrorMaxBudgetUSD    = "error_max_budget_usd"
)

// ResultSubtypeErrorPrefix is shared by all error result subtypes.
const ResultSubtypeErrorPrefix = "error"

// Content block types within assistant messages. Other block types, such as
// thinking, are skipped.
const (
	ContentTypeText    = "text"
	ContentTypeToolUse = "tool_use"
)
