package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fentz26/devlaunch/internal/script"
	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/fentz26/devlaunch/internal/sinks/filesink"
	"github.com/fentz26/devlaunch/internal/taskfile"
	"github.com/fentz26/devlaunch/internal/watch"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a task file without the daemon",
	Long:  `Reads a task file and writes the launcher script. Use -o - to print it.`,
	RunE:  runCompile,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile a task file whenever it changes",
	RunE:  runWatch,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter task file",
	RunE:  runInit,
}

var (
	taskFilePath string
	compileOut   string
	strictFlag   bool
	forceInit    bool
)

func init() {
	for _, c := range []*cobra.Command{compileCmd, watchCmd, initCmd} {
		c.Flags().StringVarP(&taskFilePath, "file", "f", taskfile.DefaultName, "Task file")
	}
	for _, c := range []*cobra.Command{compileCmd, watchCmd} {
		c.Flags().StringVarP(&compileOut, "out", "o", "", "Output path (default <output.dir>/<output.filename>)")
		c.Flags().BoolVar(&strictFlag, "strict", false, "Escape quotes and percent signs in names and commands")
	}
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func scriptOptions() script.Options {
	return script.Options{Strict: strictFlag || cfg.Output.Strict}
}

func outputPath() string {
	if compileOut != "" {
		return compileOut
	}
	return filepath.Join(cfg.Output.Dir, sinks.Filename(cfg.Output.Filename))
}

func runCompile(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	res, err := taskfile.Compile(fs, taskFilePath, scriptOptions())
	if err != nil {
		return err
	}
	for _, r := range res.Rejected {
		fmt.Fprintf(os.Stderr, "record %d skipped: %s\n", r.Index, r.Reason)
	}

	if compileOut == "-" {
		fmt.Print(res.Script)
		return nil
	}

	location, err := filesink.WriteTo(cmd.Context(), fs, outputPath(), res.Script)
	if err != nil {
		return err
	}
	fmt.Printf("Compiled %d tasks into %s\n", len(res.Tasks), location)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := outputPath()
	sink := filesink.New(afero.NewOsFs(), filepath.Dir(path))

	w, err := watch.New(taskFilePath, sink,
		watch.WithFilename(filepath.Base(path)),
		watch.WithScriptOptions(scriptOptions()),
		watch.OnCompile(func(ev watch.Event) {
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", ev.Err)
				return
			}
			fmt.Printf("Compiled %d tasks into %s\n", ev.Tasks, ev.Location)
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return w.Run(ctx)
}

func runInit(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	if exists, _ := afero.Exists(fs, taskFilePath); exists && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", taskFilePath)
	}
	if err := taskfile.Save(fs, taskFilePath, taskfile.Example()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", taskFilePath)
	fmt.Println("Next: devlaunch compile, or devlaunch daemon --seed " + taskFilePath)
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
