package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/build"
)

const releaseSlug = "shaharia-lab/formrelay"

// NewUpdateCmd returns the "update" subcommand that replaces the running
// binary with the latest GitHub release.
func NewUpdateCmd() *cobra.Command {
	var yes, checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update formrelay to the latest release",
		Long:  "Look up the latest formrelay release on GitHub and swap it in for the running binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), yes, checkOnly)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Install without asking")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether a newer release exists")
	return cmd
}

// currentVersion returns the running version without its "v" prefix. Dev and
// untagged builds cannot be updated.
func currentVersion() (string, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(build.Version, "v"))
	if err != nil {
		return "", fmt.Errorf("cannot update build %q; install a tagged release first", build.Version)
	}
	return v.String(), nil
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but y or yes counts as no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func runUpdate(ctx context.Context, in io.Reader, out io.Writer, yes, checkOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	current, err := currentVersion()
	if err != nil {
		return err
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("creating updater: %w", err)
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return fmt.Errorf("looking up latest release: %w", err)
	}
	if !found || !latest.GreaterThan(current) {
		fmt.Fprintf(out, "formrelay %s is the latest release.\n", current)
		return nil
	}

	fmt.Fprintf(out, "formrelay %s is available (running %s).\n", latest.Version(), current)
	if checkOnly {
		return nil
	}
	if !yes && !confirm(in, out, "Install "+latest.Version()+"?") {
		fmt.Fprintln(out, "Nothing installed.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating running binary: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("installing %s: %w", latest.Version(), err)
	}
	fmt.Fprintf(out, "Installed %s. Restart formrelay to run it.\n", latest.Version())
	return nil
}
