// Package service contains the application's use cases: the content
// generation operations with their input guards and failure policy, and the
// sequential media enrichment pipeline that attaches an image to every item
// of a generated document. Services depend on the generation interfaces and
// never on a concrete provider.
package service
