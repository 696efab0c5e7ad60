package buildpipeline

import "time"

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emitQueued(sink ProgressSink, items []string) {
	if sink == nil {
		return
	}
	for _, item := range items {
		sink.OnEvent(Event{Item: item, Stage: StageDiscover, Status: StatusQueued})
	}
}

// emitStage reports a stage transition for the pipeline and every item.
func emitStage(sink ProgressSink, items []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, item := range items {
		sink.OnEvent(Event{Item: item, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
