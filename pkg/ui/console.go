package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/backkem/omadm/pkg/syncml"
)

// Console is a Handler that prompts on a terminal.
type Console struct {
	in  io.Reader
	buf *bufio.Reader // nil when in is a terminal
	fd  int
	out io.Writer
}

// NewConsole creates a console handler reading from in and prompting on
// out. When in is a terminal, password input is read without echo.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newConsole(in, out, int(f.Fd()))
	}
	return newConsole(in, out, -1)
}

// newConsole marks in as the terminal fd when fd is not negative. A
// terminal is read unbuffered so no-echo reads on fd see all unread input.
func newConsole(in io.Reader, out io.Writer, fd int) *Console {
	c := &Console{in: in, fd: fd, out: out}
	if fd < 0 {
		c.buf = bufio.NewReader(in)
	}
	return c
}

// HandleAlert implements Handler.
func (c *Console) HandleAlert(ctx context.Context, alert *Alert) (Response, error) {
	fmt.Fprintf(c.out, "\n----------- UI -----------\n\n")
	fmt.Fprintf(c.out, "%s\n", alert.DisplayMessage)
	if alert.Type.IsChoice() {
		for i, choice := range alert.Choices {
			fmt.Fprintf(c.out, "%d: %s\n", i+1, choice)
		}
	}
	fmt.Fprintf(c.out, "\n--------------------------\n\n")

	if alert.Type == TypeDisplay {
		return Response{Status: syncml.StatusOK}, nil
	}

	fmt.Fprint(c.out, "? ")
	reply, err := c.readLine(alert.EchoType == EchoPassword)
	if err != nil && err != io.EOF {
		return Response{}, err
	}

	if alert.Type == TypeConfirm {
		if strings.HasPrefix(reply, "y") {
			return Response{Status: syncml.StatusOK}, nil
		}
		return Response{Status: syncml.StatusNotModified}, nil
	}
	if reply == "" {
		return Response{Status: syncml.StatusOperationCancelled}, nil
	}
	return Response{Status: syncml.StatusOK, Reply: reply}, nil
}

func (c *Console) readLine(secret bool) (string, error) {
	if c.buf != nil {
		line, err := c.buf.ReadString('\n')
		return strings.TrimRight(line, "\r\n"), err
	}
	if secret {
		b, err := term.ReadPassword(c.fd)
		fmt.Fprintln(c.out)
		return string(b), err
	}

	var line []byte
	var b [1]byte
	for {
		n, err := c.in.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			line = append(line, b[0])
		}
		if err != nil {
			return strings.TrimRight(string(line), "\r"), err
		}
	}
	return strings.TrimRight(string(line), "\r"), nil
}
