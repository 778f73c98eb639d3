package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"

	"github.com/openalpha/levfarm/pkg/apiclient"
	"github.com/openalpha/levfarm/x/vault/types"
)

// GetQueryCmd returns the query commands for the vault module. They read
// from a levfarm-api instance rather than the node's gRPC endpoint.
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the vault module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		apiQuery("vaults", "List all vaults", cobra.NoArgs, func(args []string) string {
			return "/v1/vaults"
		}),
		apiQuery("vault [vault-id]", "Query a vault's pool state", cobra.ExactArgs(1), func(args []string) string {
			return "/v1/vaults/" + url.PathEscape(args[0])
		}),
		apiQuery("position [vault-id] [position-id]", "Query a position's debt and health", cobra.ExactArgs(2), func(args []string) string {
			return fmt.Sprintf("/v1/vaults/%s/positions/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
		}),
		apiQuery("positions [vault-id]", "List a vault's open positions", cobra.ExactArgs(1), func(args []string) string {
			return "/v1/vaults/" + url.PathEscape(args[0]) + "/positions"
		}),
		apiQuery("at-risk [vault-id]", "List positions closest to the kill factor", cobra.ExactArgs(1), func(args []string) string {
			return "/v1/vaults/" + url.PathEscape(args[0]) + "/at-risk"
		}),
		apiQuery("kills [vault-id]", "List a vault's kill records", cobra.ExactArgs(1), func(args []string) string {
			return "/v1/vaults/" + url.PathEscape(args[0]) + "/kills"
		}),
		apiQuery("workers", "List all workers", cobra.NoArgs, func(args []string) string {
			return "/v1/workers"
		}),
	)

	return cmd
}

func apiQuery(use, short string, argsCheck cobra.PositionalArgs, path func([]string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argsCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiclient.FromCmd(cmd)
			if err != nil {
				return err
			}
			return c.Print(cmd, path(args))
		},
	}

	apiclient.AddFlags(cmd)
	return cmd
}
