package core

import "pkt.systems/pslog"

// ServiceDeps captures the collaborators of the core service.
type ServiceDeps struct {
	Surfaces  SurfaceFactory
	History   HistoryRecorder
	EventSink EventSink
	Logger    pslog.Logger
}
