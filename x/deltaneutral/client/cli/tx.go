package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

const (
	FlagActions         = "actions"
	FlagMinShares       = "min-shares"
	FlagMinStableAmount = "min-stable"
	FlagMinAssetAmount  = "min-asset"
)

// GetTxCmd returns the transaction commands for the deltaneutral module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Delta-neutral vault transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdInitPositions(),
		CmdDeposit(),
		CmdWithdraw(),
		CmdReinvest(),
		CmdRebalance(),
	)

	return cmd
}

// CmdInitPositions returns the command that opens both legs of a vault
func CmdInitPositions() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dn-id] [stable-amount] [asset-amount]",
		Short: "Open both legs with the first deposit (operators only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			actions, err := readActions(cmd)
			if err != nil {
				return err
			}
			minShares, err := cmd.Flags().GetString(FlagMinShares)
			if err != nil {
				return err
			}

			msg := &types.MsgInitPositions{
				Operator:     clientCtx.GetFromAddress().String(),
				DNID:         args[0],
				StableAmount: args[1],
				AssetAmount:  args[2],
				MinShares:    minShares,
				Actions:      actions,
			}
			return broadcast(clientCtx, cmd, msg)
		},
	}

	addDepositFlags(cmd)
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdDeposit returns the command to deposit into a delta-neutral vault
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [dn-id] [stable-amount] [asset-amount]",
		Short: "Deposit stable and asset tokens for vault shares",
		Long: `Deposit into an initialized vault. Without --actions the plan is
computed by the chain so both legs stay on target.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			actions, err := readActions(cmd)
			if err != nil {
				return err
			}
			minShares, err := cmd.Flags().GetString(FlagMinShares)
			if err != nil {
				return err
			}

			msg := &types.MsgDeposit{
				Depositor:    clientCtx.GetFromAddress().String(),
				DNID:         args[0],
				StableAmount: args[1],
				AssetAmount:  args[2],
				MinShares:    minShares,
				Actions:      actions,
			}
			return broadcast(clientCtx, cmd, msg)
		},
	}

	addDepositFlags(cmd)
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdWithdraw returns the command to burn delta-neutral shares
func CmdWithdraw() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw [dn-id] [shares]",
		Short: "Burn vault shares and unwind a proportional slice of both legs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			actions, err := readActions(cmd)
			if err != nil {
				return err
			}
			minStable, err := cmd.Flags().GetString(FlagMinStableAmount)
			if err != nil {
				return err
			}
			minAsset, err := cmd.Flags().GetString(FlagMinAssetAmount)
			if err != nil {
				return err
			}

			msg := &types.MsgWithdraw{
				Withdrawer:      clientCtx.GetFromAddress().String(),
				DNID:            args[0],
				Shares:          args[1],
				MinStableAmount: minStable,
				MinAssetAmount:  minAsset,
				Actions:         actions,
			}
			return broadcast(clientCtx, cmd, msg)
		},
	}

	cmd.Flags().String(FlagActions, "", "path to a JSON file with the action list")
	cmd.Flags().String(FlagMinStableAmount, "0", "least stable amount to receive")
	cmd.Flags().String(FlagMinAssetAmount, "0", "least asset amount to receive")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdReinvest returns the command that compounds both legs' farm rewards
func CmdReinvest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinvest [dn-id] [min-token-receive]",
		Short: "Harvest both legs, pay the bounty and redeploy the rest (reinvestors only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			actions, err := readActions(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgReinvest{
				Reinvestor:      clientCtx.GetFromAddress().String(),
				DNID:            args[0],
				MinTokenReceive: args[1],
				Actions:         actions,
			}
			return broadcast(clientCtx, cmd, msg)
		},
	}

	cmd.Flags().String(FlagActions, "", "path to a JSON file with the action list")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRebalance returns the command that moves both legs back on target
func CmdRebalance() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance [dn-id] [actions-file]",
		Short: "Run a rebalance action list (rebalancers only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			actions, err := parseActionsFile(args[1])
			if err != nil {
				return err
			}

			msg := &types.MsgRebalance{
				Rebalancer: clientCtx.GetFromAddress().String(),
				DNID:       args[0],
				Actions:    actions,
			}
			return broadcast(clientCtx, cmd, msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

func addDepositFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagActions, "", "path to a JSON file with the action list")
	cmd.Flags().String(FlagMinShares, "0", "least shares to mint")
}

func broadcast(clientCtx client.Context, cmd *cobra.Command, msg sdk.Msg) error {
	if v, ok := msg.(sdk.HasValidateBasic); ok {
		if err := v.ValidateBasic(); err != nil {
			return err
		}
	}
	return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
}

func readActions(cmd *cobra.Command) ([]types.Action, error) {
	path, err := cmd.Flags().GetString(FlagActions)
	if err != nil || path == "" {
		return nil, err
	}
	return parseActionsFile(path)
}

// parseActionsFile reads a JSON array of actions, e.g.
//
//	[{"type":"wrap","leg":"asset","wrap":{"amount":"750","min_out":"0"}}]
func parseActionsFile(path string) ([]types.Action, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var actions []types.Action
	if err := json.Unmarshal(bz, &actions); err != nil {
		return nil, fmt.Errorf("invalid actions file %s: %w", path, err)
	}
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return actions, nil
}
