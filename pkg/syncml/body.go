package syncml

import (
	"encoding/xml"
	"fmt"
)

// MarshalXML writes the commands in order, followed by Final if set.
func (b SyncBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeCommands(e, b.Commands); err != nil {
		return err
	}
	if b.Final {
		if err := e.EncodeElement(Empty{}, elem("Final")); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML reads the commands in document order.
func (b *SyncBody) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var c container
	if err := c.decode(d, true); err != nil {
		return err
	}
	b.Commands = c.commands
	b.Final = c.final
	return nil
}

// MarshalXML writes the Sequence header fields then the nested commands.
func (s *Sequence) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalGroup(e, start, s.CmdID, s.NoResp, s.Meta, s.Commands)
}

// UnmarshalXML reads the Sequence header fields and nested commands.
func (s *Sequence) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var c container
	if err := c.decode(d, false); err != nil {
		return err
	}
	s.CmdID, s.NoResp, s.Meta, s.Commands = c.cmdID, c.noResp, c.meta, c.commands
	return nil
}

// MarshalXML writes the Atomic header fields then the nested commands.
func (a *Atomic) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalGroup(e, start, a.CmdID, a.NoResp, a.Meta, a.Commands)
}

// UnmarshalXML reads the Atomic header fields and nested commands.
func (a *Atomic) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var c container
	if err := c.decode(d, false); err != nil {
		return err
	}
	a.CmdID, a.NoResp, a.Meta, a.Commands = c.cmdID, c.noResp, c.meta, c.commands
	return nil
}

func marshalGroup(e *xml.Encoder, start xml.StartElement, cmdID string, noResp *Empty, meta *Meta, cmds []Command) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeElement(cmdID, elem("CmdID")); err != nil {
		return err
	}
	if noResp != nil {
		if err := e.EncodeElement(noResp, elem("NoResp")); err != nil {
			return err
		}
	}
	if meta != nil {
		if err := e.EncodeElement(meta, elem("Meta")); err != nil {
			return err
		}
	}
	if err := encodeCommands(e, cmds); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func encodeCommands(e *xml.Encoder, cmds []Command) error {
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		if err := e.EncodeElement(cmd, elem(cmd.Name())); err != nil {
			return fmt.Errorf("encode %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

// container collects the children of SyncBody, Sequence and Atomic.
type container struct {
	cmdID    string
	noResp   *Empty
	meta     *Meta
	commands []Command
	final    bool
}

func (c *container) decode(d *xml.Decoder, body bool) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := c.decodeChild(d, t, body); err != nil {
				return err
			}
		}
	}
}

func (c *container) decodeChild(d *xml.Decoder, t xml.StartElement, body bool) error {
	switch t.Name.Local {
	case "Final":
		if !body {
			return fmt.Errorf("%w: Final inside a group", ErrUnexpectedElement)
		}
		c.final = true
		return d.Skip()
	case "CmdID":
		if body {
			return fmt.Errorf("%w: CmdID in SyncBody", ErrUnexpectedElement)
		}
		return d.DecodeElement(&c.cmdID, &t)
	case "NoResp":
		c.noResp = &Empty{}
		return d.Skip()
	case "Meta":
		c.meta = &Meta{}
		return d.DecodeElement(c.meta, &t)
	}
	cmd := newCommand(t.Name.Local)
	if err := d.DecodeElement(cmd, &t); err != nil {
		return fmt.Errorf("decode %s: %w", t.Name.Local, err)
	}
	c.commands = append(c.commands, cmd)
	return nil
}

func newCommand(name string) Command {
	switch name {
	case CmdAlert:
		return &Alert{}
	case CmdGet:
		return &Get{}
	case CmdAdd:
		return &Add{}
	case CmdReplace:
		return &Replace{}
	case CmdDelete:
		return &Delete{}
	case CmdExec:
		return &Exec{}
	case CmdStatus:
		return &Status{}
	case CmdResults:
		return &Results{}
	case CmdSequence:
		return &Sequence{}
	case CmdAtomic:
		return &Atomic{}
	default:
		return &Unknown{Element: name}
	}
}

func elem(local string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: local}}
}
