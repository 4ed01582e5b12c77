package cli

import (
	"bufio"
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mxslade/procmux/internal/cliutil"
	"github.com/mxslade/procmux/internal/config"
	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/metrics"
	"github.com/mxslade/procmux/internal/proc"
	"github.com/mxslade/procmux/internal/resources"
	"github.com/mxslade/procmux/internal/spawn"
	"github.com/mxslade/procmux/internal/spawn/docker"
	"github.com/mxslade/procmux/internal/tui"
)

type runOptions struct {
	encoding  string
	grace     time.Duration
	tree      bool
	separator string

	pty        bool
	forwardIn  bool
	jsonOutput bool
	useTUI     bool

	image  string
	ports  []string
	cpus   string
	memory string
	env    []string
	dir    string
}

func newRunCmd(ctx *context) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] -- program [args...]",
		Short: "Run a program and stream its output as line events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, ctx, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "IANA charset of the child's streams")
	cmd.Flags().DurationVarP(&opts.grace, "grace", "g", 0, "Graceful kill window before escalating")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "Kill the child's descendants as well")
	cmd.Flags().StringVar(&opts.separator, "separator", "", "Line separator for stdin writes (auto, lf, crlf, cr)")
	cmd.Flags().BoolVar(&opts.pty, "pty", false, "Attach the child to a pseudo-terminal")
	cmd.Flags().BoolVarP(&opts.forwardIn, "stdin", "i", false, "Forward this terminal's stdin to the child")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Emit events as JSON records")
	cmd.Flags().BoolVar(&opts.useTUI, "tui", false, "Show events in an interactive viewer")
	cmd.Flags().StringVar(&opts.image, "image", "", "Run inside a Docker container with this image")
	cmd.Flags().StringArrayVarP(&opts.ports, "port", "p", nil, "Publish a container port (with --image)")
	cmd.Flags().StringVar(&opts.cpus, "cpus", "", "Container CPU limit, e.g. 0.5 or 500m (with --image)")
	cmd.Flags().StringVar(&opts.memory, "memory", "", "Container memory limit, e.g. 512Mi (with --image)")
	cmd.Flags().StringArrayVarP(&opts.env, "env", "e", nil, "Environment variable as KEY=VALUE")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Working directory for the child")

	return cmd
}

func runProcess(cmd *cobra.Command, ctx *context, opts *runOptions, args []string) error {
	manifest, err := ctx.loadManifest(cmd)
	if err != nil {
		return err
	}
	settings := manifest.Process
	if cmd.Flags().Changed("encoding") {
		settings.Encoding = opts.encoding
	}
	if cmd.Flags().Changed("grace") {
		settings.GracefulTimeout = config.Duration{Duration: opts.grace}
	}
	if cmd.Flags().Changed("tree") {
		settings.KillDescendants = opts.tree
	}
	if cmd.Flags().Changed("separator") {
		settings.LineSeparator = opts.separator
	}

	procCfg, grace, err := settings.Resolve()
	if err != nil {
		return err
	}

	env, err := parseEnv(opts.env)
	if err != nil {
		return err
	}

	if opts.image != "" && opts.pty {
		return fmt.Errorf("--pty cannot be combined with --image")
	}
	if opts.image == "" && (len(opts.ports) > 0 || opts.cpus != "" || opts.memory != "") {
		return fmt.Errorf("--port, --cpus and --memory require --image")
	}

	pool := dispatch.New()
	started := time.Now()
	p, err := startProcess(cmd.Context(), pool, opts, procCfg, env, args)
	if err != nil {
		return err
	}
	provider := "local"
	if opts.image != "" {
		provider = "docker"
	}
	metrics.IncrementProcessStarted(provider)

	if opts.forwardIn {
		go forwardStdin(cmd.Context(), p, cmd.InOrStdin())
	}

	// A signal cancels the command context; translate that into the
	// two-phase kill rather than abandoning the child.
	killDone := make(chan struct{})
	go func() {
		select {
		case <-cmd.Context().Done():
			_ = p.Kill(stdcontext.Background(), grace)
		case <-killDone:
		}
	}()

	var code int
	if opts.useTUI {
		ui := tui.New(p, strings.Join(args, " "), grace)
		if err := ui.Run(); err != nil {
			close(killDone)
			return err
		}
		code, err = p.Wait(stdcontext.Background())
	} else {
		code, err = streamEvents(cmd.OutOrStdout(), p, opts.jsonOutput)
	}
	close(killDone)
	pool.Wait()

	if err != nil {
		return err
	}
	metrics.ObserveProcessExit(code, time.Since(started))
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func startProcess(ctx stdcontext.Context, pool *dispatch.Pool, opts *runOptions, cfg proc.Config, env map[string]string, args []string) (*proc.Process, error) {
	if opts.image != "" {
		return docker.New().Start(ctx, pool, docker.Command{
			Image:  opts.image,
			Cmd:    args,
			Env:    env,
			Ports:  opts.ports,
			Limits: resources.Limits{CPUs: opts.cpus, Memory: opts.memory},
			Proc:   cfg,
		})
	}
	return spawn.Start(ctx, pool, spawn.Command{
		Program: args[0],
		Args:    args[1:],
		Dir:     opts.dir,
		Env:     env,
		PTY:     opts.pty,
		Proc:    cfg,
	})
}

// streamEvents prints every event and returns the child's exit code once the
// stream ends. JSON output is forced when stdout is not a terminal.
func streamEvents(out io.Writer, p *proc.Process, jsonOutput bool) (int, error) {
	if !jsonOutput {
		jsonOutput = !stdoutIsTerminal(out)
	}

	for event := range p.Events() {
		record := cliutil.NewRecord(event)
		if jsonOutput {
			line, err := record.Format()
			if err != nil {
				return 0, err
			}
			fmt.Fprintln(out, line)
		} else {
			fmt.Fprintln(out, record.FormatPretty())
		}
	}

	return p.Wait(stdcontext.Background())
}

func stdoutIsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// forwardStdin relays lines from the caller's stdin until it closes or the
// child stops accepting input.
func forwardStdin(ctx stdcontext.Context, p *proc.Process, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := p.Send(ctx, scanner.Text()); err != nil {
			return
		}
	}
	p.CloseStdin()
}

func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid environment variable %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}
