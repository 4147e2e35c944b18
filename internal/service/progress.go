package service

// ProgressSink receives human-readable status messages from a pipeline run.
// Messages are fire-and-forget: a sink must never block the pipeline, and
// its return has no effect on control flow.
type ProgressSink interface {
	Progress(message string)
}

// ProgressFunc adapts a plain function to the ProgressSink interface.
type ProgressFunc func(message string)

// Progress implements ProgressSink.
func (f ProgressFunc) Progress(message string) { f(message) }

// ChannelSink is a ProgressSink backed by a bounded channel, letting callers
// consume progress messages asynchronously or fan them out to several
// subscribers. When the buffer is full new messages are dropped rather than
// blocking the pipeline.
type ChannelSink struct {
	ch chan string
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{ch: make(chan string, size)}
}

// Progress implements ProgressSink.
func (s *ChannelSink) Progress(message string) {
	select {
	case s.ch <- message:
	default:
		// Buffer full; the message is dropped.
	}
}

// Messages returns the receive side of the sink.
func (s *ChannelSink) Messages() <-chan string {
	return s.ch
}

// Close closes the message channel. Call only after the pipeline run has
// finished.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// notify sends a message to sink if one is attached.
func notify(sink ProgressSink, message string) {
	if sink != nil {
		sink.Progress(message)
	}
}
