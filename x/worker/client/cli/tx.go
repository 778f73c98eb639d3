package cli

import (
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/openalpha/levfarm/x/worker/types"
)

// GetTxCmd returns the transaction commands for the worker module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Worker module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(CmdReinvest())

	return cmd
}

// CmdReinvest returns the command that compounds a worker's farm reward
func CmdReinvest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinvest [worker-id] [min-swap-out]",
		Short: "Harvest a worker's farm reward and add it back as liquidity",
		Long: `Harvest the pending farm reward, pay the caller bounty and swap the
rest into liquidity. Only the worker's listed reinvestors may call this.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgReinvest{
				Reinvestor: clientCtx.GetFromAddress().String(),
				WorkerID:   args[0],
				MinSwapOut: args[1],
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
