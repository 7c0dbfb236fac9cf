package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/fentz26/devlaunch/internal/sinks/filesink"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the current launcher script",
	RunE:  runScript,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the current launcher script",
	Long: `Downloads the current script from the daemon and writes it to --out.
With --remote the daemon writes it to its own output directory instead.`,
	RunE: runExport,
}

var (
	exportOut    string
	exportRemote bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default <output.dir>/<output.filename>)")
	exportCmd.Flags().BoolVar(&exportRemote, "remote", false, "Let the daemon write the file")
}

func runScript(cmd *cobra.Command, args []string) error {
	body, err := apiGet("/script")
	if err != nil {
		return err
	}
	os.Stdout.Write(body)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportRemote {
		var req map[string]string
		if exportOut != "" {
			req = map[string]string{"filename": exportOut}
		}
		resp, err := apiPost("/export", req)
		if err != nil {
			return err
		}
		var result struct {
			Location string `json:"location"`
		}
		if err := json.Unmarshal(resp, &result); err != nil {
			return err
		}
		fmt.Printf("Daemon wrote %s\n", result.Location)
		return nil
	}

	path := exportOut
	if path == "" {
		path = filepath.Join(cfg.Output.Dir, sinks.Filename(cfg.Output.Filename))
	}

	body, err := apiGet("/script/download?filename=" + url.QueryEscape(filepath.Base(path)))
	if err != nil {
		return err
	}

	location, err := filesink.WriteTo(context.Background(), afero.NewOsFs(), path, string(body))
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", location, len(body))
	return nil
}
