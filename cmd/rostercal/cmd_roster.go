package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rostercal/internal/calendar"
	"rostercal/internal/config"
	"rostercal/internal/extract"
	"rostercal/internal/roster"
)

func newNamesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "names <roster-file>",
		Short: "List the employees of a roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			r, err := openRoster(args[0], cfg.RosterPolicy())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range r.Names() {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}

type exportOptions struct {
	names []string
	out   string
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	eo := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <roster-file>",
		Short: "Write one .ics calendar per employee",
		Long: `Writes "{name}_shifts_{first}_{last}.ics" for every employee of the roster,
or only for the employees given with --name.

With --out - and a single --name the calendar is written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, eo, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&eo.names, "name", "n", nil, "Employee to export (repeatable; default all)")
	cmd.Flags().StringVarP(&eo.out, "out", "o", ".", `Output directory, or "-" for stdout`)
	return cmd
}

func runExport(cmd *cobra.Command, opts *rootOptions, eo *exportOptions, path string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if eo.out == "-" && len(eo.names) != 1 {
		return errors.New("--out - needs exactly one --name")
	}

	r, err := openRoster(path, cfg.RosterPolicy())
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	docs, failures, err := gen.GenerateAll(cmd.Context(), r, eo.names...)
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", f.Error())
	}

	for _, doc := range docs {
		if err := writeDocument(cmd.OutOrStdout(), eo.out, doc); err != nil {
			return err
		}
		if doc.Ignored > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d unrecognised cells\n", doc.Owner, doc.Ignored)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d employees failed", len(failures), len(failures)+len(docs))
	}
	return nil
}

func writeDocument(stdout io.Writer, dir string, doc *calendar.Document) error {
	if dir == "-" {
		_, err := io.WriteString(stdout, doc.Text)
		return err
	}
	dest := filepath.Join(dir, doc.Filename)
	if err := config.WriteFileAtomic(dest, []byte(doc.Text), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\t%d shifts\n", dest, len(doc.Events))
	return nil
}

func openRoster(path string, policy roster.Policy) (*roster.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grid, err := extract.Read(path, f)
	if err != nil {
		return nil, err
	}
	r, err := roster.New(grid, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return r, nil
}
