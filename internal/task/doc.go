// Package task manages background job queuing, processing, and lifecycle.
// Study set assembly calls the model several times and then walks the media
// enrichment pipeline, which can take minutes; running it as a persisted
// background task keeps HTTP handlers fast and lets interrupted work resume
// after a restart.
package task
