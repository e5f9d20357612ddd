package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lllypuk/collabfront/internal/application/domainstore"
	"github.com/lllypuk/collabfront/internal/domain/record"
)

// NewDomainsCmd creates the domains command group.
func NewDomainsCmd(s *session, open storeOpener) *cobra.Command {
	if open == nil {
		panic("NewDomainsCmd: store opener cannot be nil")
	}

	domainsCmd := &cobra.Command{
		Use:     "domains",
		Aliases: []string{"domain", "d"},
		Short:   "Inspect and edit the tracked domain list",
	}

	// withStore opens the store for the duration of one subcommand.
	withStore := func(run func(cmd *cobra.Command, store domainStore, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, release, err := open(commandContext(cmd), s.cfg, s.logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := release(); closeErr != nil {
					s.logger.Warn("failed to release storage", "error", closeErr)
				}
			}()
			return run(cmd, store, args)
		}
	}

	domainsCmd.AddCommand(
		newDomainsListCmd(withStore),
		newDomainsAddCmd(withStore),
		newDomainsGetCmd(withStore),
		newDomainsRemoveCmd(withStore),
		newDomainsIndexCmd(withStore),
	)

	return domainsCmd
}

type storeRunner func(run func(cmd *cobra.Command, store domainStore, args []string) error) func(*cobra.Command, []string) error

func newDomainsListCmd(withStore storeRunner) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked domains in order",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store domainStore, _ []string) error {
			domains := store.Domains()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), domains)
			}
			printDomains(cmd.OutOrStdout(), domains)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw stored records as JSON")
	return cmd
}

func newDomainsAddCmd(withStore storeRunner) *cobra.Command {
	var host, accessKey string
	var fields []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Append a domain to the list",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store domainStore, args []string) error {
			d := record.New(strings.TrimSpace(args[0]), host, accessKey)
			if d.Name == "" {
				return fmt.Errorf("domain name must not be empty")
			}
			for _, kv := range fields {
				if err := setField(&d, kv); err != nil {
					return err
				}
			}

			index, err := store.AppendDomain(commandContext(cmd), d)
			if err != nil {
				return fmt.Errorf("add domain: %w", err)
			}
			printOK(cmd.OutOrStdout(), "added %s at index %d", d.Name, index)
			return nil
		}),
	}

	cmd.Flags().StringVar(&host, "host", "", "Host the domain is served on")
	cmd.Flags().StringVar(&accessKey, "access-key", "", "Access key issued by the collab backend")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Extra field as key=value; value is parsed as JSON when possible")
	return cmd
}

func newDomainsGetCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index>",
		Short: "Print the domain at a position as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store domainStore, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			d, ok := store.GetDomain(index)
			if !ok {
				return fmt.Errorf("no domain at index %d", index)
			}
			return writeJSON(cmd.OutOrStdout(), d)
		}),
	}
}

func newDomainsRemoveCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Aliases: []string{"remove"},
		Short:   "Remove the domain at a position",
		Args:    cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store domainStore, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			d, _ := store.GetDomain(index)
			if err = store.RemoveDomain(commandContext(cmd), index); err != nil {
				if domainstore.IsOutOfRange(err) {
					return fmt.Errorf("no domain at index %d", index)
				}
				return fmt.Errorf("remove domain: %w", err)
			}
			printOK(cmd.OutOrStdout(), "removed %s", d.Name)
			return nil
		}),
	}
}

func newDomainsIndexCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "index <name>",
		Short: "Print the position of the first domain with a name, or -1",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store domainStore, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), store.GetDomainIndex(record.Domain{Name: args[0]}))
			return err
		}),
	}
}

func printDomains(w io.Writer, domains []record.Domain) {
	if len(domains) == 0 {
		printMuted(w, "No domains tracked")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, headerStyle.Render("INDEX")+"\t"+headerStyle.Render("NAME")+"\t"+headerStyle.Render("HOST"))
	for i, d := range domains {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i, d.Name, d.Host)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIndexArg(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: must be an integer", s)
	}
	return index, nil
}

// setField applies a key=value flag to d. Values that are not valid JSON are stored as strings.
func setField(d *record.Domain, kv string) error {
	key, raw, ok := strings.Cut(kv, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid field %q: want key=value", kv)
	}

	var value any = raw
	var parsed any
	if json.Unmarshal([]byte(raw), &parsed) == nil {
		value = parsed
	}
	return d.SetField(key, value)
}
