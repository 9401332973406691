package serialmux

import (
	"context"
	"net/http"
)

// DisabledSerialMux stands in for a port when none is configured, for
// example when the receiver only serves the database. Its subscribers never
// receive a line; their channels close on Unsubscribe or Close so readers
// can finish during shutdown.
type DisabledSerialMux struct {
	subs *fanout
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{subs: newFanout(0)}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) { return d.subs.subscribe() }
func (d *DisabledSerialMux) Unsubscribe(id string)            { d.subs.unsubscribe(id) }
func (d *DisabledSerialMux) SendCommand(string) error         { return ErrNoPort }

// Monitor waits for ctx; there is nothing to read.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.subs.shutdown()
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/serial-disabled", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("serial disabled"))
	})
}
