package responder

import (
	"context"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/propreg"
	"github.com/marmos91/mtpd/internal/storage"
)

// applyObjectProp writes one property value onto an object (spec.md
// §4.2). The storage engine only backs a handful of writable codes;
// anything else is rejected rather than silently accepted.
func (r *Responder) applyObjectProp(s *storage.Storage, h storage.Handle, code mtptypes.PropCode, val container.Value) error {
	const op = "responder.applyObjectProp"

	item, ok := s.ByHandle(h)
	if !ok {
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	switch code {
	case mtptypes.PropProtectionStatus:
		item.Info.ProtectionStatus = val.U16
		return nil
	default:
		return mtperr.New(op, mtptypes.ObjectPropNotSupported)
	}
}

// wireFormFlag maps the registry's Form enum onto the PTP ObjectPropDesc
// FormFlag byte values (spec.md §4.2).
func wireFormFlag(f propreg.Form) uint8 {
	switch f {
	case propreg.FormRange:
		return 0x01
	case propreg.FormEnum:
		return 0x02
	case propreg.FormDateTime:
		return 0x03
	case propreg.FormFixedArray:
		return 0x04
	case propreg.FormRegex:
		return 0x05
	case propreg.FormByteArray:
		return 0x06
	case propreg.FormLongString:
		return 0xFF
	default:
		return 0x00
	}
}

func encodeObjectPropDesc(enc *container.Encoder, d propreg.Descriptor) error {
	enc.WriteUint16(uint16(d.Code))
	enc.WriteUint16(uint16(d.DataType))
	enc.WriteUint8(uint8(d.GetSet))
	def := d.Default
	if def.Type == mtptypes.DataTypeUndefined {
		def = container.Value{Type: d.DataType} // no factory default configured; encode the type's zero value
	}
	if err := enc.EncodeValue(def); err != nil {
		return err
	}
	enc.WriteUint32(d.GroupCode)
	enc.WriteUint8(wireFormFlag(d.Form))
	switch d.Form {
	case propreg.FormRange:
		if d.Range != nil {
			if err := enc.EncodeValue(d.Range.Min); err != nil {
				return err
			}
			if err := enc.EncodeValue(d.Range.Max); err != nil {
				return err
			}
			if err := enc.EncodeValue(d.Range.Step); err != nil {
				return err
			}
		}
	case propreg.FormEnum:
		if d.Enum != nil {
			enc.WriteUint16(uint16(len(d.Enum.Values)))
			for _, v := range d.Enum.Values {
				if err := enc.EncodeValue(v); err != nil {
					return err
				}
			}
		} else {
			enc.WriteUint16(0)
		}
	}
	return nil
}

// categoryForHandle resolves an object's property-registry category from
// its format code (spec.md §4.2).
func (r *Responder) categoryForHandle(h storage.Handle) (mtptypes.FormatCategory, *storage.Storage, error) {
	s, err := r.storages.StorageOf(h)
	if err != nil {
		return 0, nil, err
	}
	item, ok := s.ByHandle(h)
	if !ok {
		return 0, nil, mtperr.New("responder.categoryForHandle", mtptypes.InvalidObjectHandle)
	}
	return mtptypes.CategoryOf(item.Info.Format), s, nil
}

// handleGetObjectPropsSupported may run before a session exists (spec.md
// §4.6.3 pre-check 1 exemption).
func handleGetObjectPropsSupported(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectPropsSupported"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	category := mtptypes.CategoryOf(mtptypes.FormatCode(params[0]))
	codes := r.registry.PropsSupported(category)
	raw := make([]uint16, len(codes))
	for i, c := range codes {
		raw[i] = uint16(c)
	}

	enc := container.NewEncoder()
	enc.WriteArray16(raw)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

func handleGetObjectPropDesc(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectPropDesc"

	params, err := req.Params()
	if err != nil || len(params) < 2 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	category := mtptypes.CategoryOf(mtptypes.FormatCode(params[1]))
	desc, err := r.registry.PropDesc(category, mtptypes.PropCode(params[0]))
	if err != nil {
		return nil, err
	}

	enc := container.NewEncoder()
	if err := encodeObjectPropDesc(enc, desc); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

func handleGetObjectPropValue(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectPropValue"

	params, err := req.Params()
	if err != nil || len(params) < 2 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	code := mtptypes.PropCode(params[1])

	category, s, err := r.categoryForHandle(h)
	if err != nil {
		return nil, err
	}
	desc, err := r.registry.PropDesc(category, code)
	if err != nil {
		return nil, err
	}
	values, err := s.GetObjectPropertyValue(h, []propreg.Descriptor{desc}, r.thumbnails)
	if err != nil {
		return nil, err
	}
	val, ok := values[code]
	if !ok {
		return nil, mtperr.New(op, mtptypes.ObjectPropNotSupported)
	}

	enc := container.NewEncoder()
	if err := enc.EncodeValue(val); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSetObjectPropValue is the data-phase handler for a single
// writable property (spec.md §4.2, §4.6.3 "SetObjectPropValue mutates
// object state immediately").
func handleSetObjectPropValue(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SetObjectPropValue"

	params, err := req.Params()
	if err != nil || len(params) < 2 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	code := mtptypes.PropCode(params[1])

	category, s, err := r.categoryForHandle(h)
	if err != nil {
		return nil, err
	}
	desc, err := r.registry.PropDesc(category, code)
	if err != nil {
		return nil, err
	}
	if desc.GetSet != propreg.ReadWrite {
		return nil, mtperr.New(op, mtptypes.AccessDenied)
	}
	val, err := data.Decoder().DecodeValue(desc.DataType)
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.InvalidObjectPropValue, err)
	}
	if err := r.applyObjectProp(s, h, code, val); err != nil {
		return nil, err
	}
	r.emitObjectPropChanged(h, code)
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleGetObjectPropList answers a batch property query, either for one
// handle or (via the 0xFFFFFFFF handle wildcard) every child of a parent
// (spec.md §4.2 "batched property retrieval").
func handleGetObjectPropList(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectPropList"

	params, err := req.Params()
	if err != nil || len(params) < 5 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	formatFilter := mtptypes.FormatCode(params[1])
	propCodeParam := params[2]
	propCode := mtptypes.PropCode(propCodeParam)
	allProps := propCodeParam == 0xFFFFFFFF || propCodeParam == 0

	enc := container.NewEncoder()
	var entries []*container.PropListEntry

	appendEntry := func(s *storage.Storage, handle storage.Handle, category mtptypes.FormatCategory) error {
		var descs []propreg.Descriptor
		if allProps {
			for _, code := range r.registry.PropsSupported(category) {
				if d, err := r.registry.PropDesc(category, code); err == nil {
					descs = append(descs, d)
				}
			}
		} else {
			d, err := r.registry.PropDesc(category, propCode)
			if err != nil {
				return nil
			}
			descs = []propreg.Descriptor{d}
		}
		values, err := s.GetObjectPropertyValue(handle, descs, r.thumbnails)
		if err != nil {
			return err
		}
		for code, v := range values {
			entries = append(entries, &container.PropListEntry{Handle: uint32(handle), PropCode: code, DataType: v.Type, Value: v})
		}
		return nil
	}

	if h == storage.AllObjects {
		storages, err := r.storagesFor(mtptypes.AllStorageIDs)
		if err != nil {
			return nil, err
		}
		for _, s := range storages {
			for _, handle := range handlesOf(s, storage.AllObjects, uint32(formatFilter)) {
				item, ok := s.ByHandle(handle)
				if !ok {
					continue
				}
				if err := appendEntry(s, handle, mtptypes.CategoryOf(item.Info.Format)); err != nil {
					return nil, err
				}
			}
		}
	} else {
		category, s, err := r.categoryForHandle(h)
		if err != nil {
			return nil, err
		}
		if err := appendEntry(s, h, category); err != nil {
			return nil, err
		}
	}

	enc.WriteUint32(uint32(len(entries)))
	for _, e := range entries {
		if err := enc.EncodePropListEntry(e); err != nil {
			return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	}
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSetObjectPropList applies a batch of property values in one data
// phase (spec.md §4.2).
func handleSetObjectPropList(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SetObjectPropList"

	d := data.Decoder()
	count, err := d.ReadUint32()
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.InvalidDataset, err)
	}

	touched := make(map[storage.Handle]bool)
	for i := uint32(0); i < count; i++ {
		entry, err := d.DecodePropListEntry()
		if err != nil {
			return nil, mtperr.Wrap(op, mtptypes.InvalidDataset, err)
		}
		h := storage.Handle(entry.Handle)
		s, err := r.storages.StorageOf(h)
		if err != nil {
			return nil, err
		}
		if err := r.applyObjectProp(s, h, entry.PropCode, entry.Value); err != nil {
			return nil, err
		}
		touched[h] = true
	}
	for h := range touched {
		r.emitObjectPropChanged(h, 0)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSendObjectPropList stages property values for the object that a
// preceding SendObjectInfo reserved and the subsequent SendObject will
// write into (spec.md §4.6.5). It does not create an object itself: with
// no reserved handle it fails with NoValidObjectInfo.
func handleSendObjectPropList(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SendObjectPropList"

	params, err := req.Params()
	if err != nil || len(params) < 2 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}

	d := data.Decoder()
	count, err := d.ReadUint32()
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.InvalidDataset, err)
	}
	props := make(map[mtptypes.PropCode]container.Value, count)
	for i := uint32(0); i < count; i++ {
		entry, err := d.DecodePropListEntry()
		if err != nil {
			return nil, mtperr.Wrap(op, mtptypes.InvalidDataset, err)
		}
		props[entry.PropCode] = entry.Value
	}

	r.mu.Lock()
	h := r.pendingWriteHandle
	if session, ok := r.sends[h]; ok && h != 0 {
		session.pendingProps = props
	}
	r.mu.Unlock()

	if h == 0 {
		return nil, mtperr.New(op, mtptypes.NoValidObjectInfo)
	}
	return container.NewResponse(mtptypes.OK, req.TxID, params[0], params[1], uint32(h)), nil
}

func handleGetObjectReferences(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectReferences"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	if _, ok := s.ByHandle(h); !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	// The storage engine models containment only (parent/child), not the
	// independent reference graph PTP's object-references extension
	// targets (playlists, albums); report an empty reference set.
	enc := container.NewEncoder()
	enc.WriteArray(nil)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSetObjectReferences is accepted but has no backing store to
// persist into (see handleGetObjectReferences).
func handleSetObjectReferences(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SetObjectReferences"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	if _, ok := s.ByHandle(h); !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// devicePropDescs lists the only device properties the responder backs
// with real state (spec.md §4.4); anything else falls through to the
// extension chain.
var devicePropDescs = map[mtptypes.PropCode]mtptypes.DataType{
	mtptypes.PropDeviceFriendlyName: mtptypes.DataTypeString,
	mtptypes.PropSyncPartner:        mtptypes.DataTypeString,
}

func (r *Responder) deviceProp(code mtptypes.PropCode) (container.Value, error) {
	switch code {
	case mtptypes.PropDeviceFriendlyName:
		return container.Str(r.devInfo.FriendlyName()), nil
	case mtptypes.PropSyncPartner:
		return container.Str(r.devInfo.SyncPartner()), nil
	}
	if v, ok := r.extensions.GetDeviceProperty(code); ok {
		return v, nil
	}
	return container.Value{}, mtperr.New("responder.deviceProp", mtptypes.DevicePropNotSupported)
}

func handleGetDevicePropDesc(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetDevicePropDesc"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	code := mtptypes.PropCode(params[0])

	dt, known := devicePropDescs[code]
	val, err := r.deviceProp(code)
	if err != nil {
		return nil, err
	}
	if !known {
		dt = val.Type
	}

	enc := container.NewEncoder()
	enc.WriteUint16(uint16(code))
	enc.WriteUint16(uint16(dt))
	getSet := uint8(propreg.GetOnly)
	if known {
		getSet = uint8(propreg.ReadWrite)
	}
	enc.WriteUint8(getSet)
	if err := enc.EncodeValue(val); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	if err := enc.EncodeValue(val); err != nil { // CurrentValue mirrors FactoryDefaultValue here
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	enc.WriteUint8(0x00) // FormFlag: none

	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

func handleGetDevicePropValue(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetDevicePropValue"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	val, err := r.deviceProp(mtptypes.PropCode(params[0]))
	if err != nil {
		return nil, err
	}

	enc := container.NewEncoder()
	if err := enc.EncodeValue(val); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSetDevicePropValue writes FriendlyName/SyncPartner through the
// device-info provider, or falls through to an extension (spec.md §4.4).
func handleSetDevicePropValue(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SetDevicePropValue"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	code := mtptypes.PropCode(params[0])

	switch code {
	case mtptypes.PropDeviceFriendlyName:
		val, err := data.Decoder().DecodeValue(mtptypes.DataTypeString)
		if err != nil {
			return nil, mtperr.Wrap(op, mtptypes.InvalidDevicePropValue, err)
		}
		if err := r.devInfo.SetFriendlyName(val.Str); err != nil {
			return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	case mtptypes.PropSyncPartner:
		val, err := data.Decoder().DecodeValue(mtptypes.DataTypeString)
		if err != nil {
			return nil, mtperr.Wrap(op, mtptypes.InvalidDevicePropValue, err)
		}
		if err := r.devInfo.SetSyncPartner(val.Str); err != nil {
			return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	default:
		val, err := data.Decoder().DecodeValue(mtptypes.DataTypeString)
		if err != nil {
			return nil, mtperr.Wrap(op, mtptypes.InvalidDevicePropValue, err)
		}
		claimed, err := r.extensions.SetDeviceProperty(code, val)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, mtperr.New(op, mtptypes.DevicePropNotSupported)
		}
	}

	r.emitDevicePropChanged(code)
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}
