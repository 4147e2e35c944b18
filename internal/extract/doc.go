// Package extract recovers structured payloads from free-form model output.
// Model responses frequently arrive wrapped in Markdown code fences or with
// minor syntax defects; the functions here strip the wrapping, apply a single
// narrow repair, and hand back either a parsed value or an explicit no-value
// result. They never panic or let a parse error escape the boundary.
package extract
