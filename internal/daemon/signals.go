package daemon

import (
	"github.com/marmos91/mtpd/internal/responder"
	"github.com/marmos91/mtpd/internal/transport/functionfs"
)

// signalAdapter translates functionfs.Signal values onto the responder's
// own mirror type, so internal/responder does not need to import the
// transport package just to read Signals() (see responder.Signal's
// doc comment).
type signalAdapter struct {
	t *functionfs.Transport
}

func (a signalAdapter) Signals() <-chan responder.Signal {
	out := make(chan responder.Signal)
	go func() {
		defer close(out)
		for sig := range a.t.Signals() {
			out <- responder.Signal{Kind: responder.SignalKind(sig.Kind)}
		}
	}()
	return out
}
