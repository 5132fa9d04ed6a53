package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JerushaGray/ChoopScoop/internal/config"
	"github.com/JerushaGray/ChoopScoop/internal/frontier"
	"github.com/JerushaGray/ChoopScoop/internal/state"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <domain>",
		Short: "Show past audit results for a domain",
		Long: `History lists the completed audits recorded for a domain, most
recent first, with per-audit page counts and the tags that were
detected.

The argument may be a bare domain or a full URL.

Examples:
  choopscoop history example.com
  choopscoop history https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("state-dir", "",
		"Directory for per-domain crawl state (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return err
	}
	if stateDir == "" {
		stateDir = config.XDGDataDir()
	}

	domain := normalizeDomainArg(args[0])
	if domain == "" {
		return fmt.Errorf("invalid domain %q", args[0])
	}
	// Audits are keyed by registrable domain, so "www.example.com"
	// and "example.com" share one history.
	if registrable, err := frontier.RegistrableDomain(domain); err == nil {
		domain = registrable
	}
	domainKey := state.DomainKey(domain)

	store, err := state.Open(stateDir, domainKey, state.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no audit history for %s (expected state at %s)",
			domain, state.DatabasePath(stateDir, domainKey))
	}
	defer store.Close()

	audits, err := store.ListAudits(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read audit history: %w", err)
	}
	if len(audits) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No completed audits recorded for %s.\n", domain)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Audit history for %s (%d audits)\n\n", domain, len(audits))
	for _, a := range audits {
		elapsed := a.FinishedAt.Sub(a.StartedAt).Round(time.Second)
		fmt.Fprintf(out, "#%d  %s  (%s)\n", a.ID, a.FinishedAt.Format("2006-01-02 15:04:05"), elapsed)
		fmt.Fprintf(out, "    pages: %d crawled, %d failed\n", a.PagesCrawled, a.PagesFailed)
		if len(a.TagCoverage) > 0 {
			names := make([]string, 0, len(a.TagCoverage))
			for tag := range a.TagCoverage {
				names = append(names, tag)
			}
			sort.Strings(names)
			tags := make([]string, len(names))
			for i, tag := range names {
				tags[i] = fmt.Sprintf("%s (%d)", tag, a.TagCoverage[tag])
			}
			fmt.Fprintf(out, "    tags:  %s\n", strings.Join(tags, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// normalizeDomainArg accepts either a bare domain or a URL and returns
// the hostname.
func normalizeDomainArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		u, err := url.Parse(arg)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(strings.TrimSuffix(arg, "/"))
}
