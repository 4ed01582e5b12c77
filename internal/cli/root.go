package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mxslade/procmux/internal/config"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var configFile string

	root := &cobra.Command{
		Use:   "procmux",
		Short: "Run a child process behind a unified line-event handle",
	}

	root.PersistentFlags().
		StringVarP(&configFile, "file", "f", "procmux.yaml", "Path to process manifest")

	ctx := &context{configFile: &configFile}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint. When the child process exits with a
// nonzero status, the CLI exits with the same status.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configFile *string
}

// loadManifest reads the manifest named by --file. A missing file is only
// an error when the flag was set explicitly; otherwise the defaults apply.
func (c *context) loadManifest(cmd *cobra.Command) (*config.File, error) {
	path := *c.configFile
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("file") && !cmd.InheritedFlags().Changed("file") {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return config.Load(path)
}

// exitError carries the child's exit status through cobra's error return.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("process exited with status %d", e.code)
}
