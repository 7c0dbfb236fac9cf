package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fentz26/devlaunch/internal/controlplane"
	"github.com/fentz26/devlaunch/internal/taskfile"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:     "generate [instruction...]",
	Short:   "Describe tasks in plain language and append them",
	Example: `  devlaunch generate "run the next.js app in E:\site with npm run dev and redis in C:\redis"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runGenerate,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Append the tasks of a YAML or JSON task file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	instruction := strings.Join(args, " ")
	fmt.Println("Generating tasks...")

	client := &http.Client{Timeout: IngestClientTimeout}
	resp, err := apiDo(client, http.MethodPost, "/ingest", map[string]string{"instruction": instruction})
	if err != nil {
		return err
	}
	return printIngestResult(resp)
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := taskfile.Load(afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}

	resp, err := apiPost("/ingest/records", raw)
	if err != nil {
		return err
	}
	return printIngestResult(resp)
}

func printIngestResult(resp []byte) error {
	var result controlplane.IngestResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	for _, t := range result.Added {
		fmt.Printf("  + %s  %s  (%s)\n", truncateID(t.ID), t.Name, t.Path)
	}
	for _, r := range result.Rejected {
		fmt.Printf("  - record %d skipped: %s\n", r.Index, r.Reason)
	}
	fmt.Printf("Added %d tasks", len(result.Added))
	if len(result.Rejected) > 0 {
		fmt.Printf(", skipped %d", len(result.Rejected))
	}
	fmt.Println()
	return nil
}
