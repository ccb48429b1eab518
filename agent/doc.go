// Package agent implements the conversation orchestrator. One Agent drives
// one conversation at a time. Each ProcessMessage call runs a full turn:
// persist the user message, replay the token-bounded history to the
// completion endpoint, demultiplex the streamed response into text output
// and accumulating tool-call requests, execute the requested tools through
// the dispatch layer, issue exactly one follow-up completion, and persist
// the final assistant message. Every failure is scoped to the turn and ends
// with a durable assistant record.
package agent
