package session

import (
	"context"
	"errors"

	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/ui"
)

// handleAlert answers an Alert found in a server message.
func (s *Session) handleAlert(ctx context.Context, a *syncml.Alert, b *builder) {
	code, err := a.Code()
	if err != nil {
		b.status(a, syncml.StatusBadRequest)
		return
	}

	switch {
	case code.IsUserInteraction():
		s.interact(ctx, a, b)
	case code == syncml.AlertNextMessage, code == syncml.AlertServerInitiated, code == syncml.AlertClientInitiated:
		b.status(a, syncml.StatusOK)
	default:
		s.log.Debugf("unsupported alert %v", code)
		b.status(a, syncml.StatusOptionalNotSupported)
	}
}

// interact runs a user interaction alert through the UI handler. The
// handler is called synchronously so that alerts are answered in the order
// they were received, before any later command runs.
func (s *Session) interact(ctx context.Context, a *syncml.Alert, b *builder) {
	alert, err := ui.ParseAlert(a)
	if err != nil {
		s.log.Debugf("alert %s: %v", a.CmdID, err)
		if errors.Is(err, ui.ErrMissingMessage) {
			b.status(a, syncml.StatusIncompleteCommand)
		} else {
			b.status(a, syncml.StatusBadRequest)
		}
		return
	}

	var resp ui.Response
	if s.handler == nil {
		resp = ui.Default(alert)
	} else {
		resp, err = s.handler.HandleAlert(ctx, alert)
		if err != nil {
			s.log.Warnf("alert %s: %v", a.CmdID, err)
			b.status(a, syncml.StatusCommandFailed)
			return
		}
	}
	resp = ui.Finalize(alert, resp)

	st := b.status(a, resp.Status)
	if st == nil || resp.Reply == "" {
		return
	}
	if alert.Type.IsChoice() {
		for _, c := range ui.Choices(resp.Reply) {
			st.Items = append(st.Items, syncml.Item{Data: c})
		}
		return
	}
	st.Items = []syncml.Item{{Data: resp.Reply}}
}
