package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/runger/sk/internal/session"
	"github.com/runger/sk/internal/tui"
)

// Exit codes.
const (
	exitSelected  = 0
	exitCancelled = 1
	exitFailure   = 2
)

// exitError carries a process exit code out of a cobra RunE. A nil err
// exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

// chooser is the engine a session runs, plus the query it ended with.
type chooser interface {
	session.Engine
	Query() string
}

// app holds the process streams so tests can drive the command without a
// terminal.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	newEngine func(opts tui.Options, logger *slog.Logger) chooser
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		getenv: os.Getenv,
		newEngine: func(opts tui.Options, logger *slog.Logger) chooser {
			return &ttyEngine{opts: opts, logger: logger}
		},
	}
}

func (a *app) newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "sk",
		Short: "Interactive fuzzy selection over streamed items",
		Long: `sk - interactive fuzzy selection over streamed items

Reads items from stdin (text lines, JSON lines or a JSON array), or from a
command given with -c, lets you narrow them down interactively and prints
the selection.

Exit status is 0 when something was selected, 1 when aborted and 2 on
errors.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChooser(cmd, f)
		},
	}
	root.SetVersionTemplate(versionText())
	f.register(root)

	root.AddCommand(a.newVersionCmd())
	root.AddCommand(a.newConfigCmd())
	return root
}

// Execute runs sk with the process arguments and returns the exit code.
func Execute() int {
	return newApp(os.Stdin, os.Stdout, os.Stderr).execute(os.Args[1:])
}

func (a *app) execute(args []string) int {
	root := a.newRootCmd()
	args, err := withDefaultOptions(args, a.getenv("SK_DEFAULT_OPTIONS"), root)
	if err != nil {
		fmt.Fprintf(a.stderr, "sk: SK_DEFAULT_OPTIONS: %v\n", err)
		return exitFailure
	}
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err = root.Execute()
	if err == nil {
		return exitSelected
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(a.stderr, "sk: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(a.stderr, "sk: %v\n", err)
	return exitFailure
}

// withDefaultOptions prepends the shell-split SK_DEFAULT_OPTIONS to args
// unless args name a subcommand.
func withDefaultOptions(args []string, defaults string, root *cobra.Command) ([]string, error) {
	if defaults == "" {
		return args, nil
	}
	if len(args) > 0 {
		if sub, _, err := root.Find(args[:1]); err == nil && sub != root {
			return args, nil
		}
		if args[0] == "help" || args[0] == "completion" {
			return args, nil
		}
	}
	extra, err := shlex.Split(defaults)
	if err != nil {
		return nil, err
	}
	return append(extra, args...), nil
}
