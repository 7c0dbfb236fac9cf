package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fentz26/devlaunch/internal/models"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the decision journal",
	RunE:  runAudit,
}

var auditExportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "Show the export history",
	RunE:  runAuditExports,
}

var (
	auditTask  string
	auditLimit int
)

func init() {
	auditCmd.AddCommand(auditExportsCmd)
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 20, "Maximum number of entries")
	auditCmd.Flags().StringVar(&auditTask, "task", "", "Only entries for this task id")
}

func runAudit(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(auditLimit))
	if auditTask != "" {
		q.Set("task", auditTask)
	}

	resp, err := apiGet("/audit?" + q.Encode())
	if err != nil {
		return err
	}

	var entries []models.PDREntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tTASK\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Outcome, truncateID(e.TaskID), truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}

func runAuditExports(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/exports?limit=" + strconv.Itoa(auditLimit))
	if err != nil {
		return err
	}

	var records []models.ExportRecord
	if err := json.Unmarshal(resp, &records); err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No exports")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSINK\tLOCATION\tBYTES\tSHA256")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Sink, r.Location, r.Bytes, truncateID(r.SHA256))
	}
	w.Flush()
	return nil
}
