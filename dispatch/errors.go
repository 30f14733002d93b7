package dispatch

import (
	"fmt"

	"github.com/rivulet-irc/rivulet/irc"
)

// PluginHandlerFailure is what a recovered handler panic turns into: it
// carries enough of the triggering event to correlate the failure with
// a log line, without keeping the whole Event (and its Sender) alive
// past the panic.
type PluginHandlerFailure struct {
	Handler   string
	Network   string
	EventName string
	Recovered interface{}
	Stack     []byte
}

func (p *PluginHandlerFailure) Error() string {
	return fmt.Sprintf("dispatch: handler %q panicked on %s/%s: %v",
		p.Handler, p.Network, p.EventName, p.Recovered)
}

func newPluginHandlerFailure(handler string, ev *irc.Event, recovered interface{}, stack []byte) *PluginHandlerFailure {
	f := &PluginHandlerFailure{Handler: handler, Recovered: recovered, Stack: stack}
	if ev != nil {
		f.Network = ev.NetworkID
		f.EventName = ev.Name
	}
	return f
}
