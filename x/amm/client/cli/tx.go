package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// GetTxCmd returns the transaction commands for the amm module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "AMM module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdCreatePool(),
		CmdSwap(),
		CmdSetPrice(),
	)

	return cmd
}

// CmdCreatePool returns the command to seed a constant-product pool
func CmdCreatePool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pool [coin-a] [coin-b] [fee-bps]",
		Short: "Create a pool from the sender's tokens, e.g. 1000000uusd 100000uatom 25",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			coinA, err := sdk.ParseCoinNormalized(args[0])
			if err != nil {
				return fmt.Errorf("invalid coin a: %v", err)
			}
			coinB, err := sdk.ParseCoinNormalized(args[1])
			if err != nil {
				return fmt.Errorf("invalid coin b: %v", err)
			}
			feeBps, err := strconv.ParseUint(args[2], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid fee bps: %v", err)
			}

			msg := &types.MsgCreatePool{
				Creator: clientCtx.GetFromAddress().String(),
				DenomA:  coinA.Denom,
				AmountA: coinA.Amount.String(),
				DenomB:  coinB.Denom,
				AmountB: coinB.Amount.String(),
				FeeBps:  uint32(feeBps),
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

// CmdSwap returns the command to swap along a denom path
func CmdSwap() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap [amount-in] [path] [min-out]",
		Short: "Swap amount-in of the first path denom, path is comma separated (uatom,uusd)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgSwap{
				Sender:   clientCtx.GetFromAddress().String(),
				AmountIn: args[0],
				Path:     strings.Split(args[1], ","),
				MinOut:   args[2],
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

// CmdSetPrice returns the command feeders use to post oracle prices
func CmdSetPrice() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-price [denom] [price]",
		Short: "Post a dollar price for a denom (feeders only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgSetPrice{
				Feeder: clientCtx.GetFromAddress().String(),
				Denom:  args[0],
				Price:  args[1],
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
