package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

const (
	FlagPositionID   = "position-id"
	FlagMaxReturn    = "max-return"
	FlagStrategy     = "strategy"
	FlagStrategyData = "strategy-data"
	FlagAllowUnsafe  = "allow-unsafe"
)

// GetTxCmd returns the transaction commands for the vault module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Vault module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdDeposit(),
		CmdWithdraw(),
		CmdWork(),
		CmdAddCollateral(),
		CmdKill(),
	)

	return cmd
}

// CmdDeposit returns the command to lend base tokens to a vault
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [vault-id] [amount]",
		Short: "Lend base tokens to a vault for interest-bearing shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgDeposit{
				Depositor: clientCtx.GetFromAddress().String(),
				VaultID:   args[0],
				Amount:    args[1],
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

// CmdWithdraw returns the command to burn vault shares for base tokens
func CmdWithdraw() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw [vault-id] [shares]",
		Short: "Burn vault shares for their base token value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgWithdraw{
				Withdrawer: clientCtx.GetFromAddress().String(),
				VaultID:    args[0],
				Shares:     args[1],
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

// CmdWork returns the command to open or adjust a leveraged position
func CmdWork() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work [vault-id] [worker-id] [principal] [borrow]",
		Short: "Open or adjust a leveraged position",
		Long: `Open a new position (omit --position-id) or adjust an existing one.
The principal is pulled from the sender, the borrow from the vault, and both
are handed to the worker's strategy. --strategy-data is the strategy's JSON
params, e.g. '{"min_lp_receive":"0"}'.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			positionID, err := cmd.Flags().GetUint64(FlagPositionID)
			if err != nil {
				return err
			}
			maxReturn, err := cmd.Flags().GetString(FlagMaxReturn)
			if err != nil {
				return err
			}
			strategyID, strategyData, err := readStrategy(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgWork{
				Owner:        clientCtx.GetFromAddress().String(),
				VaultID:      args[0],
				PositionID:   positionID,
				WorkerID:     args[1],
				Principal:    args[2],
				Borrow:       args[3],
				MaxReturn:    maxReturn,
				StrategyID:   strategyID,
				StrategyData: strategyData,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().Uint64(FlagPositionID, 0, "position to adjust; 0 opens a new one")
	cmd.Flags().String(FlagMaxReturn, "0", "most debt to repay from the strategy output")
	addStrategyFlags(cmd, workertypes.StrategyAddBaseTokenOnly)
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdAddCollateral returns the command to add principal to an open position
func CmdAddCollateral() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-collateral [vault-id] [position-id] [amount]",
		Short: "Add principal to an open position without borrowing",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			positionID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position id: %v", err)
			}
			allowUnsafe, err := cmd.Flags().GetBool(FlagAllowUnsafe)
			if err != nil {
				return err
			}
			strategyID, strategyData, err := readStrategy(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgAddCollateral{
				Owner:        clientCtx.GetFromAddress().String(),
				VaultID:      args[0],
				PositionID:   positionID,
				Amount:       args[2],
				AllowUnsafe:  allowUnsafe,
				StrategyID:   strategyID,
				StrategyData: strategyData,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().Bool(FlagAllowUnsafe, false, "accept a position that stays above the work factor")
	addStrategyFlags(cmd, workertypes.StrategyAddBaseTokenOnly)
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdKill returns the command to liquidate an unhealthy position
func CmdKill() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill [vault-id] [position-id]",
		Short: "Liquidate a position whose debt crossed the kill factor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			positionID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position id: %v", err)
			}

			msg := &types.MsgKill{
				Killer:     clientCtx.GetFromAddress().String(),
				VaultID:    args[0],
				PositionID: positionID,
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

func addStrategyFlags(cmd *cobra.Command, defaultStrategy string) {
	cmd.Flags().String(FlagStrategy, defaultStrategy, "worker strategy id")
	cmd.Flags().String(FlagStrategyData, "{}", "strategy params as JSON")
}

func readStrategy(cmd *cobra.Command) (string, json.RawMessage, error) {
	strategyID, err := cmd.Flags().GetString(FlagStrategy)
	if err != nil {
		return "", nil, err
	}
	data, err := cmd.Flags().GetString(FlagStrategyData)
	if err != nil {
		return "", nil, err
	}
	if !json.Valid([]byte(data)) {
		return "", nil, fmt.Errorf("strategy data is not valid JSON: %s", data)
	}
	return strategyID, json.RawMessage(data), nil
}
