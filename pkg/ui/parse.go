package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/backkem/omadm/pkg/syncml"
)

// Option names of the first alert item.
const (
	optMinDisplay = "MINDT"
	optMaxDisplay = "MAXDT"
	optDefault    = "DR"
	optMaxLength  = "MAXLEN"
	optInputType  = "IT"
	optEchoType   = "ET"
)

// ParseAlert builds an Alert from a user interaction Alert command.
//
// Item 0 carries the options (MINDT=10&DR=1&...), item 1 the display text
// and the remaining items the choices. An alert with a single item is taken
// as display text only. Unknown or malformed options are ignored.
func ParseAlert(cmd *syncml.Alert) (*Alert, error) {
	code, err := cmd.Code()
	if err != nil {
		return nil, err
	}
	typ, ok := TypeFromAlert(code)
	if !ok {
		return nil, ErrNotInteraction
	}
	if len(cmd.Items) == 0 {
		return nil, ErrMissingMessage
	}

	a := &Alert{Type: typ}
	if len(cmd.Items) == 1 {
		a.DisplayMessage = cmd.Items[0].Data
		return a, nil
	}

	applyOptions(a, cmd.Items[0].Data)
	a.DisplayMessage = cmd.Items[1].Data
	if typ.IsChoice() {
		for _, it := range cmd.Items[2:] {
			a.Choices = append(a.Choices, it.Data)
		}
	}
	return a, nil
}

func applyOptions(a *Alert, s string) {
	values := splitOptions(strings.TrimSpace(s))

	if v, ok := seconds(values.Get(optMinDisplay)); ok {
		a.MinDisplayTime = v
	}
	if v, ok := seconds(values.Get(optMaxDisplay)); ok {
		a.MaxDisplayTime = v
	}
	if n, err := strconv.Atoi(values.Get(optMaxLength)); err == nil && n > 0 {
		a.MaxResponseLength = n
	}
	a.DefaultResponse = values.Get(optDefault)

	switch strings.ToUpper(values.Get(optInputType)) {
	case "N":
		a.InputType = InputNumeric
	case "D":
		a.InputType = InputDate
	case "T":
		a.InputType = InputTime
	case "P":
		a.InputType = InputPhone
	case "I":
		a.InputType = InputIP
	}
	if strings.ToUpper(values.Get(optEchoType)) == "P" {
		a.EchoType = EchoPassword
	}
}

type options map[string]string

// splitOptions splits NAME=value pairs separated by '&'. Values are kept
// verbatim; the first occurrence of a name wins.
func splitOptions(s string) options {
	o := options{}
	for _, part := range strings.Split(s, "&") {
		k, v, _ := strings.Cut(part, "=")
		if _, ok := o[k]; !ok && k != "" {
			o[k] = v
		}
	}
	return o
}

func (o options) Get(name string) string { return o[name] }

func seconds(s string) (time.Duration, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
