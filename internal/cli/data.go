package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"glucotrack/internal/core"
	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

func collectionKeys() []string {
	keys := make([]string, 0, len(domain.Collections()))
	for _, c := range domain.Collections() {
		keys = append(keys, string(c))
	}
	return keys
}

func lookupCollection(svc *core.Service, name string) (repository.Collection, error) {
	c, ok := svc.Collection(name)
	if !ok {
		return nil, fmt.Errorf("unknown collection %q (known: %v)", name, collectionKeys())
	}
	return c, nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create empty collections in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store ready (driver %s)\n", svc.Store().Driver())
			return nil
		},
	}
}

type collectionInfo struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Size     int64  `json:"sizeBytes"`
	Orphaned bool   `json:"orphaned,omitempty"`
}

func newCollectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections with their record counts",
		Long: `List every known collection with its record count and stored size.

Keys in the store that no collection reads (for example data left under a
renamed key) are listed as orphaned and reported on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			entries, err := svc.Store().Entries(ctx)
			if err != nil {
				return err
			}
			sizes := make(map[string]int64, len(entries))
			for _, e := range entries {
				sizes[e.Key] = e.Size
			}
			out := make([]collectionInfo, 0, len(entries))
			for _, key := range collectionKeys() {
				c, _ := svc.Collection(key)
				n, err := c.Count(ctx, nil)
				if err != nil {
					return err
				}
				out = append(out, collectionInfo{Name: key, Count: n, Size: sizes[key]})
			}
			for _, e := range entries {
				if _, known := domain.ParseCollection(e.Key); known {
					continue
				}
				var items []json.RawMessage
				svc.Store().Get(ctx, e.Key, &items)
				out = append(out, collectionInfo{Name: e.Key, Count: len(items), Size: e.Size, Orphaned: true})
				fmt.Fprintf(cmd.ErrOrStderr(), "key %s is not a known collection; its data is not read\n", e.Key)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

type findOptions struct {
	Where  []string
	Filter string
	Sort   []string
	Skip   int
	Limit  int
	Count  bool
}

func newFindCmd(a *app) *cobra.Command {
	opts := &findOptions{}
	cmd := &cobra.Command{
		Use:   "find COLLECTION",
		Short: "Query a collection",
		Long: `Query a collection with filters, sorting and pagination.

Filters combine with AND:
  --where value:gte:100 --where mealContext=fasting
  --filter '{"value": {"gte": 100, "lt": 180}}'

Operators: eq, ne, gt, gte, lt, lte, in, nin (in/nin take a comma list).

Values are read as JSON when they parse: 123 is a number, true a boolean and
null matches missing fields. Anything else is a string. Quote a value to force
a string, e.g. --where 'userId="123"'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseWhere(opts.Where)
			if err != nil {
				return err
			}
			fromJSON, err := parseFilterJSON(opts.Filter)
			if err != nil {
				return err
			}
			query, err := parseSort(opts.Sort)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip") {
				query = append(query, repository.WithSkip(opts.Skip))
			}
			if cmd.Flags().Changed("limit") {
				query = append(query, repository.WithLimit(opts.Limit))
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			c, err := lookupCollection(svc, args[0])
			if err != nil {
				return err
			}
			filter := mergeFilters(where, fromJSON)
			ctx := commandContext(cmd)
			if opts.Count {
				n, err := c.Count(ctx, filter)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			items, err := c.FindAny(ctx, filter, query...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "Filter clause field:op:value or field=value (repeatable)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Filter as a JSON object")
	cmd.Flags().StringArrayVar(&opts.Sort, "sort", nil, "Sort key field[:asc|desc] (repeatable, applied in order)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "Number of matches to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "Print the number of matches instead of the records")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION ID",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			c, err := lookupCollection(svc, args[0])
			if err != nil {
				return err
			}
			item, ok := c.GetAny(commandContext(cmd), args[1])
			if !ok {
				return fmt.Errorf("%s %s not found", args[0], args[1])
			}
			return writeJSON(cmd.OutOrStdout(), item)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete COLLECTION ID",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			c, err := lookupCollection(svc, args[0])
			if err != nil {
				return err
			}
			removed, err := c.Remove(commandContext(cmd), args[1])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s not found\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write every collection as one JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			keys := collectionKeys()
			if all {
				keys = nil
			}
			snapshot, err := svc.Store().Export(commandContext(cmd), keys)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			if err := writeJSON(f, snapshot); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d collections to %s\n", len(snapshot), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include every stored key, not only known collections")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace collections from an export document",
		Long: `Replace collections from a document written by export. Only the
collections present in the document are overwritten; "-" reads stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import: %w", err)
				}
				defer f.Close()
				r = f
			}
			var snapshot map[string]json.RawMessage
			if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
				return fmt.Errorf("decode import: %w", err)
			}
			names := make([]string, 0, len(snapshot))
			for name, raw := range snapshot {
				if _, ok := domain.ParseCollection(name); !ok {
					return fmt.Errorf("unknown collection %q in import", name)
				}
				var items []json.RawMessage
				if err := json.Unmarshal(raw, &items); err != nil || items == nil {
					return fmt.Errorf("collection %s: expected a JSON array", name)
				}
				names = append(names, name)
			}
			sort.Strings(names)
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.Store().Import(commandContext(cmd), snapshot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %v\n", names)
			return nil
		},
	}
}
