package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"

	"github.com/openalpha/levfarm/pkg/apiclient"
	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// GetQueryCmd returns the query commands for the deltaneutral module, served
// by levfarm-api
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for delta-neutral vaults",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryVaults(),
		CmdQueryVault(),
	)

	return cmd
}

// CmdQueryVaults returns the command listing every delta-neutral vault
func CmdQueryVaults() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaults",
		Short: "List delta-neutral vaults with equity and share price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiclient.FromCmd(cmd)
			if err != nil {
				return err
			}
			return c.Print(cmd, "/v1/deltaneutral")
		},
	}

	apiclient.AddFlags(cmd)
	return cmd
}

// CmdQueryVault returns the command showing one vault's leg state
func CmdQueryVault() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault [dn-id]",
		Short: "Query a delta-neutral vault's legs, equity and drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiclient.FromCmd(cmd)
			if err != nil {
				return err
			}
			return c.Print(cmd, "/v1/deltaneutral/"+url.PathEscape(args[0]))
		},
	}

	apiclient.AddFlags(cmd)
	return cmd
}
