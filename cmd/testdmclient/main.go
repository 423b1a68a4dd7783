// testdmclient opens a DM session with a configured server, or replays a
// stored server message, and dumps every packet to stderr.
//
// Usage:
//
//	testdmclient [options]
//
// Options:
//
//	-w        Encode packets as WBXML (default: XML)
//	-s ID     Server id of the account to connect to (default: funambol)
//	-f FILE   Process a stored server message and print the answer to stdout
//	-config   Path of a TOML configuration file
//	-debug    Enable debug logging
//	-seal S   Print S sealed with $OMADM_PASSPHRASE and exit
//
// The exit status is 0 when the session ended normally, the HTTP status
// when the server refused a packet, and the engine result code otherwise.
//
// Example:
//
//	testdmclient -config device.toml -s funambol -w
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/client"
	"github.com/backkem/omadm/pkg/config"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/session"
	"github.com/backkem/omadm/pkg/transport"
	"github.com/backkem/omadm/pkg/ui"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitReplayFile = 3
)

var errUsage = errors.New("usage")

type options struct {
	wbxml      bool
	serverID   string
	replayFile string
	configPath string
	debug      bool
	seal       string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("testdmclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&o.wbxml, "w", false, "Encode packets as WBXML")
	fs.StringVar(&o.serverID, "s", config.DefaultServerID, "Server id of the account to connect to")
	fs.StringVar(&o.replayFile, "f", "", "Process a stored server message instead of connecting")
	fs.StringVar(&o.configPath, "config", "", "Path of a TOML configuration file")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&o.seal, "seal", "", "Print the secret sealed with $"+account.PassphraseEnv+" and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	serverSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "s" {
			serverSet = true
		}
	})
	if serverSet && o.replayFile != "" {
		return nil, fmt.Errorf("%w: -s and -f are mutually exclusive", errUsage)
	}
	return o, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}
	passphrase := os.Getenv(account.PassphraseEnv)

	if o.seal != "" {
		if passphrase == "" {
			fmt.Fprintf(stderr, "%s is not set\n", account.PassphraseEnv)
			return exitUsage
		}
		sealed, err := account.Seal(o.seal, passphrase)
		if err != nil {
			fmt.Fprintf(stderr, "seal: %v\n", err)
			return exitUsage
		}
		fmt.Fprintln(stdout, sealed)
		return exitOK
	}

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
	}
	if o.wbxml {
		cfg.Session.Encoding = "wbxml"
	}

	var replay []byte
	if o.replayFile != "" {
		if replay, err = os.ReadFile(o.replayFile); err != nil {
			fmt.Fprintf(stderr, "read %s: %v\n", o.replayFile, err)
			return exitReplayFile
		}
	}

	lf := newLoggerFactory(o.debug, stderr)
	log := lf.NewLogger("testdmclient")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, closeTransport, err := newClient(ctx, cfg, o, passphrase, stdin, stdout, stderr, lf)
	if err != nil {
		log.Errorf("%v", err)
		return exitCode(err)
	}
	defer closeTransport()

	if replay != nil {
		pkt, err := c.Replay(ctx, config.DefaultServerID, replay)
		if err != nil {
			log.Errorf("replay: %v", err)
			return exitCode(err)
		}
		fmt.Fprintln(stdout, formatPacket(pkt.Data))
		pkt.Release()
		return exitOK
	}

	if err := c.Run(ctx, o.serverID, session.InitiatorClient); err != nil {
		log.Errorf("session: %v", err)
		return exitCode(err)
	}
	return exitOK
}

// newClient wires the configuration into a client. The management tree is
// handed to the session, which closes it when the run ends.
func newClient(ctx context.Context, cfg *config.File, o *options, passphrase string,
	stdin io.Reader, stdout, stderr io.Writer, lf logging.LoggerFactory) (*client.Client, func(), error) {
	enc, err := cfg.Encoding()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", session.ErrInvalidArgument, err)
	}

	tree, err := cfg.OpenTree(ctx, lf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", session.ErrInvalidArgument, err)
	}
	fail := func(err error) (*client.Client, func(), error) {
		if c, ok := tree.(io.Closer); ok {
			c.Close()
		}
		return nil, nil, err
	}

	store, err := accountStore(ctx, cfg, tree, passphrase)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", session.ErrInvalidArgument, err))
	}

	closeTransport := func() {}
	var sender client.Sender
	if o.replayFile == "" {
		h, err := transport.New(transport.Config{
			Timeout:       cfg.Transport.Timeout.Duration,
			MaxReplySize:  cfg.Transport.MaxReplySize,
			LoggerFactory: lf,
		})
		if err != nil {
			return fail(err)
		}
		sender = h
		closeTransport = func() { h.Close() }
	}

	c, err := client.New(client.Config{
		Session: session.Config{
			Encoding:       enc,
			Accounts:       store,
			DeviceInfo:     cfg.DeviceInfo(),
			MaxMsgSize:     cfg.Session.MaxMsgSize,
			MaxPackets:     cfg.Session.MaxPackets,
			MaxAuthRetries: cfg.Session.MaxAuthRetries,
		},
		Transport:     sender,
		Providers:     []mo.Provider{tree},
		UI:            ui.NewConsole(stdin, stdout),
		Trace:         newDumper(stderr).trace,
		LoggerFactory: lf,
	})
	if err != nil {
		closeTransport()
		return fail(err)
	}
	return c, closeTransport, nil
}

// accountStore reads accounts from ./DMAcc when the management tree holds
// that subtree, and from the [[account]] entries otherwise.
func accountStore(ctx context.Context, cfg *config.File, tree mo.Provider, passphrase string) (account.Store, error) {
	if mo.HasPrefix(account.DMAccURI, tree.BaseURI()) {
		kind, err := tree.IsNode(ctx, account.DMAccURI)
		if err != nil {
			return nil, err
		}
		if kind == mo.NodeInterior {
			reg := mo.NewRegistry()
			if err := reg.Register(tree); err != nil {
				return nil, err
			}
			return account.NewTreeStore(reg, passphrase), nil
		}
	}
	return cfg.AccountStore(passphrase)
}

func newLoggerFactory(debug bool, w io.Writer) logging.LoggerFactory {
	lf := logging.NewDefaultLoggerFactory()
	lf.Writer = w
	lf.DefaultLogLevel = logging.LogLevelInfo
	if debug {
		lf.DefaultLogLevel = logging.LogLevelDebug
	}
	return lf
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var se *transport.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return int(session.ResultOf(err))
}
