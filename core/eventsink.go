package core

import "pkt.systems/tabcast/schema"

// EventSink receives tab registry events committed by the dispatcher.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
}
