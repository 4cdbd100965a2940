// Package extension implements the thin chain-of-responsibility the
// responder consults for operation codes and device properties it does
// not itself recognize (spec.md §4.6.2, §9: "Extension dispatch"). Loading
// actual extension modules is an external collaborator out of scope here
// (spec.md §1 Non-goals); this package only provides the dispatch
// mechanism a loader would plug modules into.
package extension

import (
	"context"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// Extension handles operations and device properties the core responder
// doesn't recognize, grounded on the original's MTPExtension interface
// (operationHasDataPhase/handleOperation/get|setDevPropValue).
type Extension interface {
	Name() string

	// HandlesOperation reports whether this extension claims opCode, and
	// if so whether it has a data phase.
	HandlesOperation(opCode uint16) (hasDataPhase bool, claimed bool)

	// HandleOperation processes a claimed operation. data is the
	// preceding data-phase container, or nil if the operation has none.
	HandleOperation(ctx context.Context, req *container.Container, data *container.Container) (*container.Container, error)

	// GetDeviceProperty returns a device property value this extension
	// owns, or ok=false if it doesn't recognize code.
	GetDeviceProperty(code mtptypes.PropCode) (value container.Value, ok bool)

	// SetDeviceProperty sets a device property value this extension
	// owns, or ok=false if it doesn't recognize code.
	SetDeviceProperty(code mtptypes.PropCode, value container.Value) (ok bool, err error)
}

// Manager dispatches to registered extensions in registration order,
// stopping at the first one that claims the request (spec.md §6
// supplemented behavior, grounded on mtpextensionmanager.cpp).
type Manager struct {
	extensions []Extension
}

// NewManager returns an empty extension chain.
func NewManager() *Manager { return &Manager{} }

// Register appends ext to the end of the dispatch chain.
func (m *Manager) Register(ext Extension) { m.extensions = append(m.extensions, ext) }

// HasDataPhase reports whether any registered extension claims opCode,
// and if so whether that operation has a data phase.
func (m *Manager) HasDataPhase(opCode uint16) (hasDataPhase bool, claimed bool) {
	for _, ext := range m.extensions {
		if hd, ok := ext.HandlesOperation(opCode); ok {
			return hd, true
		}
	}
	return false, false
}

// Dispatch routes a claimed operation to the first extension that
// recognizes it. claimed is false if no extension in the chain
// recognizes req.Code.
func (m *Manager) Dispatch(ctx context.Context, req *container.Container, data *container.Container) (resp *container.Container, claimed bool, err error) {
	for _, ext := range m.extensions {
		if _, ok := ext.HandlesOperation(req.Code); ok {
			resp, err = ext.HandleOperation(ctx, req, data)
			return resp, true, err
		}
	}
	return nil, false, nil
}

// GetDeviceProperty consults the chain for a property value.
func (m *Manager) GetDeviceProperty(code mtptypes.PropCode) (container.Value, bool) {
	for _, ext := range m.extensions {
		if v, ok := ext.GetDeviceProperty(code); ok {
			return v, true
		}
	}
	return container.Value{}, false
}

// SetDeviceProperty consults the chain to set a property value, stopping
// at the first extension that claims code regardless of whether the
// underlying set succeeds.
func (m *Manager) SetDeviceProperty(code mtptypes.PropCode, value container.Value) (claimed bool, err error) {
	for _, ext := range m.extensions {
		ok, setErr := ext.SetDeviceProperty(code, value)
		if ok {
			return true, setErr
		}
	}
	return false, nil
}
