// Command termgraph is the CLI for the terminology query engine: loading
// RF2 snapshots, term search, hierarchy and attribute queries, closure
// management, simplification and a JSON query server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinvoc/termgraph"
	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/query"
	"github.com/clinvoc/termgraph/sctid"
)

var (
	flagConfig   string
	flagDBPath   string
	flagTables   []string
	flagInactive bool
	flagLax      bool

	flagIncludeSelf bool
	flagClosureName string
	flagSubsetXLSX  string
	flagTargets     []string
	flagAddr        string
	flagJSONLog     bool
)

func main() {
	root := &cobra.Command{
		Use:           "termgraph",
		Short:         "Query a clinical terminology graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			if flagJSONLog {
				handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			}
			slog.SetDefault(slog.New(handler))
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (JSON)")
	root.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the snapshot database")
	root.PersistentFlags().StringSliceVar(&flagTables, "tables", nil, "edge tables to query (default: all)")
	root.PersistentFlags().BoolVar(&flagInactive, "inactive", false, "include inactive edges")
	root.PersistentFlags().BoolVar(&flagLax, "lax", false, "accept concept ids without SCTID validation")
	root.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "structured JSON logging")

	root.AddCommand(
		importCmd(),
		searchCmd(),
		termCmd(),
		hierarchyCmd("parents", "Direct is-a parents of the given concepts"),
		hierarchyCmd("children", "Direct is-a children of the given concepts"),
		hierarchyCmd("ancestors", "All transitive is-a ancestors of the given concepts"),
		hierarchyCmd("descendants", "All transitive is-a descendants of the given concepts"),
		attributesCmd(),
		simplifyCmd(),
		closureCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig builds the engine config from defaults, optional config file
// and environment/flag overrides, mirroring the serve surface.
func loadConfig() (termgraph.Config, error) {
	cfg := termgraph.DefaultConfig()
	if flagConfig != "" {
		f, err := os.Open(flagConfig)
		if err != nil {
			return cfg, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}
	if v := os.Getenv("TERMGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if len(flagTables) > 0 {
		cfg.EdgeTables = flagTables
	}
	if flagInactive {
		cfg.ActiveOnly = false
	}
	return cfg, nil
}

func openTerminology() (*termgraph.Terminology, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return termgraph.Open(cfg)
}

// parseConceptArg normalizes one textual concept reference. Identifiers are
// checked as SCTIDs unless --lax is set, in which case any number passes.
func parseConceptArg(s string) (concept.ID, error) {
	if flagLax {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing concept id %q: %w", s, err)
		}
		return concept.ID(n), nil
	}
	return sctid.ParseConcept(s)
}

func parseConceptArgs(args []string) (concept.Set, []concept.ID, error) {
	set := concept.NewSet()
	ids := make([]concept.ID, 0, len(args))
	for _, a := range args {
		id, err := parseConceptArg(a)
		if err != nil {
			return concept.Set{}, nil, err
		}
		set.Add(id)
		ids = append(ids, id)
	}
	return set, ids, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <rf2-snapshot-dir>",
		Short: "Load an RF2 snapshot directory into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			stats, err := term.ImportRF2(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over description terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			hits, err := term.SearchTerms(context.Background(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}
}

func termCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "term <concept-id>...",
		Short: "Display terms and semantic tags for concepts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()
			ctx := context.Background()

			type row struct {
				ConceptID concept.ID `json:"concept_id"`
				Term      string     `json:"term"`
				Tag       string     `json:"tag,omitempty"`
			}
			var out []row
			for _, a := range args {
				id, err := parseConceptArg(a)
				if err != nil {
					return err
				}
				t, err := term.PreferredTerm(ctx, id)
				if err != nil {
					return err
				}
				tag, _ := term.SemanticTag(ctx, id)
				out = append(out, row{ConceptID: id, Term: t, Tag: tag})
			}
			return printJSON(out)
		},
	}
}

func hierarchyCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <concept-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()
			ctx := context.Background()

			set, _, err := parseConceptArgs(args)
			if err != nil {
				return err
			}
			var opts []query.Option
			if flagIncludeSelf {
				opts = append(opts, query.IncludeSelf())
			}

			var result concept.Set
			switch name {
			case "parents":
				result, err = term.Parents(ctx, set, opts...)
			case "children":
				result, err = term.Children(ctx, set, opts...)
			case "ancestors":
				result, err = term.Ancestors(ctx, set, opts...)
			case "descendants":
				result, err = term.Descendants(ctx, set, opts...)
			}
			if err != nil {
				return err
			}
			return printJSON(result.Slice())
		},
	}
	cmd.Flags().BoolVar(&flagIncludeSelf, "include-self", false, "include the input concepts in the result")
	return cmd
}

func attributesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attributes <concept-id>...",
		Short: "All single-hop edges touching the given concepts, with terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			_, ids, err := parseConceptArgs(args)
			if err != nil {
				return err
			}
			rows, err := term.ConceptAttributes(context.Background(), ids)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
}

func simplifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simplify <concept-id>...",
		Short: "Map concepts to the closest unambiguous ancestor within a target set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()
			ctx := context.Background()

			_, ids, err := parseConceptArgs(args)
			if err != nil {
				return err
			}

			var targets concept.Set
			switch {
			case flagSubsetXLSX != "":
				targets, err = term.ImportSubsetXLSX(flagSubsetXLSX)
				if err != nil {
					return err
				}
			case len(flagTargets) > 0:
				targets, _, err = parseConceptArgs(flagTargets)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("simplify: a target set is required (--targets or --targets-xlsx)")
			}

			rows, err := term.Simplify(ctx, ids, targets)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringSliceVar(&flagTargets, "targets", nil, "target ancestor concept ids")
	cmd.Flags().StringVar(&flagSubsetXLSX, "targets-xlsx", "", "spreadsheet with target ancestor ids (first column)")
	return cmd
}

func closureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closure",
		Short: "Manage precomputed transitive closures",
	}

	build := &cobra.Command{
		Use:   "build <concept-id>...",
		Short: "Build and save the is-a closure over a concept subset",
		RunE: func(c *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()
			ctx := context.Background()

			var subset concept.Set
			if flagSubsetXLSX != "" {
				subset, err = term.ImportSubsetXLSX(flagSubsetXLSX)
				if err != nil {
					return err
				}
			} else {
				subset, _, err = parseConceptArgs(args)
				if err != nil {
					return err
				}
			}
			if subset.IsEmpty() {
				return fmt.Errorf("closure build: a concept subset is required (args or --subset-xlsx)")
			}

			cl, err := term.BuildClosure(ctx, subset)
			if err != nil {
				return err
			}
			if err := term.SaveClosure(ctx, flagClosureName, cl); err != nil {
				return err
			}
			slog.Info("closure built", "name", flagClosureName, "rows", cl.Len(), "subset", subset.Len())
			return nil
		},
	}
	build.Flags().StringVar(&flagClosureName, "name", "default", "name to save the closure under")
	build.Flags().StringVar(&flagSubsetXLSX, "subset-xlsx", "", "spreadsheet with the concept subset (first column)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved closures",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			names, err := term.Store().Closures(context.Background())
			if err != nil {
				return err
			}
			return printJSON(names)
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved closure",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			return term.Store().DeleteClosure(context.Background(), args[0])
		},
	}

	cmd.AddCommand(build, list, del)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON query server",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			term, err := openTerminology()
			if err != nil {
				return err
			}
			defer term.Close()

			return runServer(term, flagAddr)
		},
	}
	cmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	return cmd
}
