package responder

import (
	"strconv"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage"
)

// emitStorageEvent turns a storage-engine change into an MTP event
// container and pushes it to the transport's interrupt writer (spec.md
// §4.6.6). ObjectAdded/ObjectRemoved are never filtered; ObjectInfoChanged
// is only sent if the object's EventsOn flag is set (spec.md §4.6.6
// "filtered: only emitted if the object's flag is set").
func (r *Responder) emitStorageEvent(ev storage.Event) {
	switch ev.Kind {
	case storage.EventObjectAdded:
		r.queueEvent(mtptypes.EventObjectAdded, uint32(ev.Handle))
	case storage.EventObjectRemoved:
		r.queueEvent(mtptypes.EventObjectRemoved, uint32(ev.Handle))
	case storage.EventObjectInfoChanged:
		if r.objectEventsEnabled(ev.Handle) {
			r.queueEvent(mtptypes.EventObjectInfoChanged, uint32(ev.Handle))
		}
	case storage.EventStorageInfoChanged:
		r.queueEvent(mtptypes.EventStorageInfoChanged, ev.StorageID)
	}
}

// emitDevicePropChanged queues a DevicePropChanged event (spec.md
// §4.6.6: "on friendly name, sync partner, battery change").
func (r *Responder) emitDevicePropChanged(code mtptypes.PropCode) {
	r.queueEvent(mtptypes.EventDevicePropChanged, uint32(code))
}

// emitObjectPropChanged queues an ObjectPropChanged event, filtered the
// same way as ObjectInfoChanged.
func (r *Responder) emitObjectPropChanged(h storage.Handle, code mtptypes.PropCode) {
	if !r.objectEventsEnabled(h) {
		return
	}
	r.queueEvent(mtptypes.EventObjectPropChanged, uint32(h), uint32(code))
}

func (r *Responder) objectEventsEnabled(h storage.Handle) bool {
	s, err := r.storages.StorageOf(h)
	if err != nil {
		return false
	}
	item, ok := s.ByHandle(h)
	if !ok {
		return false
	}
	return item.EventsOn
}

func (r *Responder) queueEvent(code mtptypes.EventCode, params ...uint32) {
	evt := container.NewEvent(code, 0, params...)
	r.transport.QueueEvent(evt)
	r.metrics.RecordEventEmitted("0x" + strconv.FormatUint(uint64(code), 16))
}
