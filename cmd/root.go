package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/config"
)

// NewRootCmd builds the command tree around cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "formrelay",
		Short: "Relay website form submissions to WhatsApp",
		Long: `formrelay accepts contact, lead and order submissions over HTTP and
forwards them as WhatsApp messages through a linked device.`,
		SilenceUsage: true,
	}

	root.AddCommand(NewServeCmd(cfg))
	root.AddCommand(NewSendCmd(cfg))
	root.AddCommand(NewVersionCmd())
	root.AddCommand(NewUpdateCmd())
	return root
}

// Execute loads configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
