package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rpattn/pivotql/internal/config"
	"github.com/rpattn/pivotql/internal/db"
	"github.com/rpattn/pivotql/internal/export"
	"github.com/rpattn/pivotql/internal/ingestion"
	"github.com/rpattn/pivotql/internal/pivot"
	"github.com/rpattn/pivotql/internal/server"

	"github.com/spf13/cobra"
)

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pivot API server",
		Run:   serve}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Run:   migrate}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "pivot file",
		Short: "Pivot a long-format CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		Run:   pivotFile}
	cmd.Flags().StringP("group", "g", "", "group field, or two comma-separated fields for a composite key")
	cmd.Flags().StringP("columns", "c", "", "field whose distinct values become columns")
	cmd.Flags().StringP("values", "v", "", "field supplying the cell values")
	cmd.Flags().String("labels", "", "field holding column display labels")
	cmd.Flags().String("extra", "", "extra fields to copy, e.g. 'serial' or 'serial:sn'")
	cmd.Flags().String("lookup", "", "file supplying the column set instead of the data itself")
	cmd.Flags().Int("offset", 0, "first group to include")
	cmd.Flags().Int("limit", 0, "number of groups to include, 0 for all")
	cmd.Flags().String("format", "json", "output format, 'json', 'csv' or 'xlsx'")
	root.AddCommand(cmd)
}

func serve(cmd *cobra.Command, args []string) {
	configPath, _ := cmd.Flags().GetString("config")
	if err := server.Run(cmd.Context(), configPath); err != nil {
		fatal("%v", err)
	}
}

func migrate(cmd *cobra.Command, args []string) {
	configPath, _ := cmd.Flags().GetString("config")
	dbCfg, srvCfg, err := config.Load(configPath)
	if err != nil {
		fatal("%v", err)
	}
	if err := db.RunMigrations(dbCfg, srvCfg.MigrationsPath); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Migrations applied")
}

func pivotFile(cmd *cobra.Command, args []string) {
	group, _ := cmd.Flags().GetString("group")
	columns, _ := cmd.Flags().GetString("columns")
	values, _ := cmd.Flags().GetString("values")
	labels, _ := cmd.Flags().GetString("labels")
	extra, _ := cmd.Flags().GetString("extra")
	lookup, _ := cmd.Flags().GetString("lookup")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	cfg := pivot.Config{
		Source:       loadSource(args[0]),
		GroupFields:  splitFields(group),
		ColumnsField: columns,
		ValuesField:  values,
		LabelsField:  labels,
		ExtraFields:  pivot.ParseExtraFields(extra),
	}
	if lookup != "" {
		cfg.ColumnsSource = loadSource(lookup)
	}
	if offset > 0 || limit > 0 {
		cfg.Page = &pivot.Page{Offset: offset, Limit: limit}
	}

	provider, err := pivot.NewProvider(cfg)
	if err != nil {
		fatal("%v", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	table, err := provider.Data(ctx)
	if err != nil {
		fatal("%v", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(table); err != nil {
			fatal("%v", err)
		}
	case "csv", "xlsx":
		specs, err := provider.DistinctColumns(ctx)
		if err != nil {
			fatal("%v", err)
		}
		err = export.Write(os.Stdout, export.Format(format), export.Request{
			Table:       table,
			KeyLabel:    pivot.LastSegment(cfg.GroupFields[0]),
			Columns:     specs,
			ExtraFields: cfg.ExtraFields,
		})
		if err != nil {
			fatal("%v", err)
		}
	default:
		fatal("unknown format %q", format)
	}
}

func loadSource(fname string) pivot.Source {
	payload, err := os.ReadFile(fname)
	if err != nil {
		fatal("%v", err)
	}
	rows, err := ingestion.ParseFile(fname, payload)
	if err != nil {
		fatal("%v", err)
	}
	return pivot.NewMemorySource(rows)
}

func splitFields(raw string) []string {
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}
