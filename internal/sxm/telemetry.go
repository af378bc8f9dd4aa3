package sxm

import "context"

// Sink publishes a now-playing snapshot somewhere outside the request path.
// Publish is always called from its own goroutine (see PlaylistResolver)
// and its error, if any, is only ever logged — a telemetry outage must
// never affect streaming.
type Sink interface {
	Publish(ctx context.Context, np NowPlaying) error
}

// NoopSink is the default Sink: telemetry is opt-in.
type NoopSink struct{}

func (NoopSink) Publish(context.Context, NowPlaying) error { return nil }
