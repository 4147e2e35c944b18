// Package gemini implements the generation interfaces using Google's Gemini
// API. It is an infrastructure adapter: it owns prompt construction, the
// structured-output schemas passed to the model, and the parsing of model
// responses into domain objects, without exposing provider details to the
// application core.
//
// The adapter is constructed explicitly and injected into the service layer,
// never held as ambient global state, so tests can substitute a mock
// collaborator. When no API key is configured the adapter stays in a
// degraded mode where every call returns generation.ErrMissingAPIKey and the
// service layer applies its documented fallback behavior.
package gemini
