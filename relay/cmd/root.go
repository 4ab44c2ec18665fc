package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"tuncat/pkg/ident"
	"tuncat/relay"
	"tuncat/tun"
)

var (
	verbosity int
	ifaceName string
	ethernet  bool
	pktInfo   bool
	permanent bool
	owner     string
	group     string
	bufferLen int

	rootCmd = &cobra.Command{
		Use:   "tuncat",
		Short: "Pipe a tun/tap device through stdin/stdout",
		Long: "tuncat creates (or attaches to) a tun/tap interface and relays\n" +
			"raw packets between the device and standard input/output.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
)

func init() {
	// Usage goes to stderr on argument errors; runtime failures only log.
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintln(os.Stderr, c.UsageString())
		return err
	})

	f := rootCmd.Flags()
	f.CountVarP(&verbosity, "verbose", "v", "increase verbosity (can be repeated)")
	f.StringVarP(&ifaceName, "interface", "i", "", "use a (possibly existing) tun interface")
	f.BoolVarP(&ethernet, "ethernet", "e", false, "add ethernet headers (tap instead of tun)")
	f.BoolVarP(&pktInfo, "flags", "f", false, "add flags+protocol preamble (2x2 bytes)")
	f.BoolVarP(&permanent, "permanent", "p", false, "keep the device after program exit")
	f.StringVarP(&owner, "user", "u", "", "set the device owner (default is the effective uid)")
	f.StringVarP(&group, "group", "g", "", "set the device group (default is the effective gid)")
	f.IntVarP(&bufferLen, "buffer", "b", relay.DefaultBufferLen, "transfer buffer size in bytes")
}

func run(cmd *cobra.Command) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	switch verbosity {
	case 0:
		log.SetLevel(log.WarnLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Flags().Changed("interface") && ifaceName == "" {
		return fmt.Errorf("interface name cannot be empty: %w", unix.EINVAL)
	}
	if bufferLen <= 0 {
		return fmt.Errorf("buffer size must be positive: %w", unix.EINVAL)
	}

	uid := os.Geteuid()
	gid := os.Getegid()
	var err error
	if owner != "" {
		if uid, err = ident.User(owner); err != nil {
			return identErr(err)
		}
	}
	if group != "" {
		if gid, err = ident.Group(group); err != nil {
			return identErr(err)
		}
	}

	mode := tun.Tun
	if ethernet {
		mode = tun.Tap
	}
	fr := tun.Raw
	if pktInfo {
		fr = tun.Framed
	}

	dev, err := tun.New(tun.Config{
		Name:    ifaceName,
		Mode:    mode,
		Framing: fr,
		Persist: permanent,
		Owner:   uid,
		Group:   gid,
	})
	if err != nil {
		return err
	}
	defer dev.Close()
	log.Infof("created %s device %s (framing: %s, persistent: %v, owner: %d, group: %d)",
		dev.Mode(), dev.Name(), dev.Framing(), dev.Persistent(), uid, gid)

	color.New(color.FgGreen).Fprintf(os.Stderr, "Listening on %s\n", dev.Name())

	sig, err := relay.NewSignal()
	if err != nil {
		return err
	}
	defer sig.Close()

	// A broken stdout reader should surface as a relay write error,
	// not kill the process.
	signal.Ignore(syscall.SIGPIPE)
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Infof("received %v signal, shutting down", <-sigchan)
		sig.Set()
	}()

	r, err := relay.New(dev, int(os.Stdin.Fd()), int(os.Stdout.Fd()), bufferLen, sig)
	if err != nil {
		return err
	}
	return r.Run()
}

func identErr(err error) error {
	if errors.Is(err, ident.ErrOutOfRange) {
		return fmt.Errorf("%w: %w", err, unix.ERANGE)
	}
	return fmt.Errorf("%w: %w", err, unix.EINVAL)
}

// Execute runs the root command and exits errno-style: the wrapped
// errno when one caused the failure, 1 otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
