// Package session owns the Claude CLI processes started on behalf of chat
// conversations.
//
// A Manager maps an opaque key (a Slack channel, a user, a terminal) to at most
// one running CLI invocation. Sending a message for a key that already has a
// running invocation terminates the old process before the new one starts, so
// two processes never run for the same key.
//
// # Basic Usage
//
//	mgr := session.NewManager(session.HandlerFuncs{
//	    Stream:  func(key, text string) { post(key, text) },
//	    Message: func(key string, m session.Message) { post(key, m.Content) },
//	    Error:   func(key, msg string) { post(key, "error: "+msg) },
//	},
//	    session.WithWorkdir("/path/to/project"),
//	    session.WithTimeout(time.Hour),
//	)
//	defer mgr.Close()
//
//	_ = mgr.SendMessage("C123", "summarize the open PRs")
//
// SendMessage returns immediately. Results arrive on the Handler, in order,
// from a single dispatch goroutine; handlers may call back into the Manager.
//
// # Directives
//
// A message that is exactly a stop keyword ("stop", "취소", ...) terminates
// the running process for the key instead of starting a new one. A message
// whose first token is a reset token ("-clear", "-c") starts the CLI without
// --continue, discarding the previous conversation context.
//
// # Outcomes
//
// Every accepted message ends in exactly one Message or Error event: a
// result record, a non-zero exit, a process failure and the hard timeout all
// race to finish a session and only the first one is reported. A session that
// is replaced or stopped reports nothing further.
//
// While a session waits for its result, a liveness event is emitted every
// ping interval. Any init or assistant record resets the count.
package session
