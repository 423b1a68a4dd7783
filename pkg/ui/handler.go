package ui

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/backkem/omadm/pkg/syncml"
)

// Handler answers interaction alerts. HandleAlert may block until the user
// responds. A returned error is reported to the server as a failed command.
type Handler interface {
	HandleAlert(ctx context.Context, alert *Alert) (Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, alert *Alert) (Response, error)

// HandleAlert calls f.
func (f HandlerFunc) HandleAlert(ctx context.Context, alert *Alert) (Response, error) {
	return f(ctx, alert)
}

// Default answers an alert without user involvement: displays are
// acknowledged, confirmations rejected, and input or choice alerts get
// their default response, or are cancelled when there is none.
func Default(alert *Alert) Response {
	switch alert.Type {
	case TypeDisplay:
		return Response{Status: syncml.StatusOK}
	case TypeConfirm:
		return Response{Status: syncml.StatusNotModified}
	default:
		if alert.DefaultResponse != "" {
			return Response{Status: syncml.StatusOK, Reply: alert.DefaultResponse}
		}
		return Response{Status: syncml.StatusOperationCancelled}
	}
}

// Finalize applies the reply contract to a handler response.
//
// Confirmations report 200 when accepted and 304 otherwise. Display alerts
// carry no reply. Input and choice replies are normalized to NFC and cut to
// MaxResponseLength characters.
func Finalize(alert *Alert, resp Response) Response {
	if resp.Status == 0 {
		resp.Status = syncml.StatusOK
	}

	switch alert.Type {
	case TypeDisplay:
		resp.Reply = ""
	case TypeConfirm:
		if resp.Status != syncml.StatusOK {
			resp.Status = syncml.StatusNotModified
		}
		resp.Reply = ""
	default:
		if resp.Status != syncml.StatusOK {
			resp.Reply = ""
			break
		}
		resp.Reply = Truncate(norm.NFC.String(resp.Reply), alert.MaxResponseLength)
	}
	return resp
}

// Truncate cuts s to at most max characters. A max of zero or less leaves s
// unchanged.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Choices splits a choice reply into its selected numbers.
func Choices(reply string) []string {
	return strings.FieldsFunc(reply, func(r rune) bool {
		return r == '-' || r == ' ' || r == ','
	})
}
