package tabcast

import (
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

// eventFanout delivers each tab event to every sink in order.
type eventFanout []core.EventSink

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f {
		sink.OnTabEvent(event)
	}
}

func fanout(sinks ...core.EventSink) core.EventSink {
	kept := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return eventFanout(kept)
}
