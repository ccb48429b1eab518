// Package model defines the provider-agnostic abstraction over the remote
// chat-completion endpoint, the system's only network dependency.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Pass streamed tool-call fragments through raw, so the orchestrator
//     owns their accumulation
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI-compatible, Anthropic) implement the Model interface in
// sub-packages so higher layers stay decoupled from vendor SDKs.
package model
