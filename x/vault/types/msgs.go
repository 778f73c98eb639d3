package types

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreateVault{},
		&MsgUpdateVaultConfig{},
		&MsgWithdrawReserve{},
		&MsgDeposit{},
		&MsgWithdraw{},
		&MsgWork{},
		&MsgAddCollateral{},
		&MsgKill{},
	)
}

// Message types
const (
	TypeMsgCreateVault       = "create_vault"
	TypeMsgUpdateVaultConfig = "update_vault_config"
	TypeMsgWithdrawReserve   = "withdraw_reserve"
	TypeMsgDeposit           = "deposit"
	TypeMsgWithdraw          = "withdraw"
	TypeMsgWork              = "work"
	TypeMsgAddCollateral     = "add_collateral"
	TypeMsgKill              = "kill"
)

// ParseAmount parses a decimal integer string; empty means zero
func ParseAmount(s string) (math.Int, error) {
	if s == "" {
		return math.ZeroInt(), nil
	}
	i, ok := math.NewIntFromString(s)
	if !ok || i.IsNegative() {
		return math.ZeroInt(), ErrInvalidAmount.Wrap(s)
	}
	return i, nil
}

func validPositive(s string) error {
	i, err := ParseAmount(s)
	if err != nil {
		return err
	}
	if !i.IsPositive() {
		return ErrInvalidAmount.Wrap("amount must be positive")
	}
	return nil
}

// MsgCreateVault opens a lending vault (governance only)
type MsgCreateVault struct {
	Authority string      `json:"authority"`
	VaultID   string      `json:"vault_id"`
	Denom     string      `json:"denom"`
	Config    VaultConfig `json:"config"`
}

func (msg MsgCreateVault) Route() string { return ModuleName }
func (msg MsgCreateVault) Type() string { return TypeMsgCreateVault }

// ValidateBasic implements sdk.Msg
func (msg MsgCreateVault) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.VaultID == "" || msg.Denom == "" {
		return ErrInvalidConfig.Wrap("vault id and denom are required")
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgCreateVault) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgCreateVault) ProtoMessage() {}
func (msg *MsgCreateVault) Reset() { *msg = MsgCreateVault{} }
func (msg MsgCreateVault) String() string {
	return fmt.Sprintf("MsgCreateVault{VaultID: %s, Denom: %s}", msg.VaultID, msg.Denom)
}

// MsgCreateVaultResponse defines the CreateVault response
type MsgCreateVaultResponse struct {
	ShareDenom string `json:"share_denom"`
}

// MsgUpdateVaultConfig replaces a vault's config (governance only)
type MsgUpdateVaultConfig struct {
	Authority string      `json:"authority"`
	VaultID   string      `json:"vault_id"`
	Config    VaultConfig `json:"config"`
}

func (msg MsgUpdateVaultConfig) Route() string { return ModuleName }
func (msg MsgUpdateVaultConfig) Type() string { return TypeMsgUpdateVaultConfig }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateVaultConfig) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateVaultConfig) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgUpdateVaultConfig) ProtoMessage() {}
func (msg *MsgUpdateVaultConfig) Reset() { *msg = MsgUpdateVaultConfig{} }
func (msg MsgUpdateVaultConfig) String() string {
	return fmt.Sprintf("MsgUpdateVaultConfig{VaultID: %s}", msg.VaultID)
}

// MsgUpdateVaultConfigResponse defines the UpdateVaultConfig response
type MsgUpdateVaultConfigResponse struct{}

// MsgWithdrawReserve pays part of a vault's reserve out (governance only)
type MsgWithdrawReserve struct {
	Authority string `json:"authority"`
	VaultID   string `json:"vault_id"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (msg MsgWithdrawReserve) Route() string { return ModuleName }
func (msg MsgWithdrawReserve) Type() string { return TypeMsgWithdrawReserve }

// ValidateBasic implements sdk.Msg
func (msg MsgWithdrawReserve) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if _, err := sdk.AccAddressFromBech32(msg.Recipient); err != nil {
		return err
	}
	return validPositive(msg.Amount)
}

// GetSigners implements sdk.Msg
func (msg MsgWithdrawReserve) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgWithdrawReserve) ProtoMessage() {}
func (msg *MsgWithdrawReserve) Reset() { *msg = MsgWithdrawReserve{} }
func (msg MsgWithdrawReserve) String() string {
	return fmt.Sprintf("MsgWithdrawReserve{VaultID: %s, Amount: %s}", msg.VaultID, msg.Amount)
}

// MsgWithdrawReserveResponse defines the WithdrawReserve response
type MsgWithdrawReserveResponse struct{}

// MsgDeposit lends base to a vault for interest-bearing shares
type MsgDeposit struct {
	Depositor string `json:"depositor"`
	VaultID   string `json:"vault_id"`
	Amount    string `json:"amount"`
}

func (msg MsgDeposit) Route() string { return ModuleName }
func (msg MsgDeposit) Type() string { return TypeMsgDeposit }

// ValidateBasic implements sdk.Msg
func (msg MsgDeposit) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Depositor); err != nil {
		return err
	}
	if msg.VaultID == "" {
		return ErrVaultNotFound
	}
	return validPositive(msg.Amount)
}

// GetSigners implements sdk.Msg
func (msg MsgDeposit) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Depositor)
	return []sdk.AccAddress{addr}
}

func (*MsgDeposit) ProtoMessage() {}
func (msg *MsgDeposit) Reset() { *msg = MsgDeposit{} }
func (msg MsgDeposit) String() string {
	return fmt.Sprintf("MsgDeposit{Depositor: %s, VaultID: %s, Amount: %s}", msg.Depositor, msg.VaultID, msg.Amount)
}

// MsgDepositResponse defines the Deposit response
type MsgDepositResponse struct {
	Shares string `json:"shares"`
}

// MsgWithdraw burns vault shares for their base
type MsgWithdraw struct {
	Withdrawer string `json:"withdrawer"`
	VaultID    string `json:"vault_id"`
	Shares     string `json:"shares"`
}

func (msg MsgWithdraw) Route() string { return ModuleName }
func (msg MsgWithdraw) Type() string { return TypeMsgWithdraw }

// ValidateBasic implements sdk.Msg
func (msg MsgWithdraw) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Withdrawer); err != nil {
		return err
	}
	if msg.VaultID == "" {
		return ErrVaultNotFound
	}
	return validPositive(msg.Shares)
}

// GetSigners implements sdk.Msg
func (msg MsgWithdraw) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Withdrawer)
	return []sdk.AccAddress{addr}
}

func (*MsgWithdraw) ProtoMessage() {}
func (msg *MsgWithdraw) Reset() { *msg = MsgWithdraw{} }
func (msg MsgWithdraw) String() string {
	return fmt.Sprintf("MsgWithdraw{Withdrawer: %s, VaultID: %s, Shares: %s}", msg.Withdrawer, msg.VaultID, msg.Shares)
}

// MsgWithdrawResponse defines the Withdraw response
type MsgWithdrawResponse struct {
	Amount string `json:"amount"`
}

// MsgWork opens (PositionID 0) or adjusts a leveraged position
type MsgWork struct {
	Owner        string          `json:"owner"`
	VaultID      string          `json:"vault_id"`
	PositionID   uint64          `json:"position_id"`
	WorkerID     string          `json:"worker_id"`
	Principal    string          `json:"principal"`
	Borrow       string          `json:"borrow"`
	MaxReturn    string          `json:"max_return"`
	StrategyID   string          `json:"strategy_id"`
	StrategyData json.RawMessage `json:"strategy_data,omitempty"`
}

func (msg MsgWork) Route() string { return ModuleName }
func (msg MsgWork) Type() string { return TypeMsgWork }

// ValidateBasic implements sdk.Msg
func (msg MsgWork) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Owner); err != nil {
		return err
	}
	if msg.VaultID == "" || msg.WorkerID == "" || msg.StrategyID == "" {
		return ErrInvalidConfig.Wrap("vault, worker and strategy are required")
	}
	for _, s := range []string{msg.Principal, msg.Borrow, msg.MaxReturn} {
		if _, err := ParseAmount(s); err != nil {
			return err
		}
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgWork) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Owner)
	return []sdk.AccAddress{addr}
}

func (*MsgWork) ProtoMessage() {}
func (msg *MsgWork) Reset() { *msg = MsgWork{} }
func (msg MsgWork) String() string {
	return fmt.Sprintf("MsgWork{Owner: %s, VaultID: %s, PositionID: %d, WorkerID: %s, Strategy: %s}",
		msg.Owner, msg.VaultID, msg.PositionID, msg.WorkerID, msg.StrategyID)
}

// MsgWorkResponse defines the Work response
type MsgWorkResponse struct {
	PositionID uint64 `json:"position_id"`
	Debt       string `json:"debt"`
	Health     string `json:"health"`
	Returned   string `json:"returned"`
}

// MsgAddCollateral adds principal to an existing position through an approved strategy
type MsgAddCollateral struct {
	Owner        string          `json:"owner"`
	VaultID      string          `json:"vault_id"`
	PositionID   uint64          `json:"position_id"`
	Amount       string          `json:"amount"`
	AllowUnsafe  bool            `json:"allow_unsafe"`
	StrategyID   string          `json:"strategy_id"`
	StrategyData json.RawMessage `json:"strategy_data,omitempty"`
}

func (msg MsgAddCollateral) Route() string { return ModuleName }
func (msg MsgAddCollateral) Type() string { return TypeMsgAddCollateral }

// ValidateBasic implements sdk.Msg
func (msg MsgAddCollateral) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Owner); err != nil {
		return err
	}
	if msg.PositionID == 0 {
		return ErrPositionNotFound
	}
	return validPositive(msg.Amount)
}

// GetSigners implements sdk.Msg
func (msg MsgAddCollateral) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Owner)
	return []sdk.AccAddress{addr}
}

func (*MsgAddCollateral) ProtoMessage() {}
func (msg *MsgAddCollateral) Reset() { *msg = MsgAddCollateral{} }
func (msg MsgAddCollateral) String() string {
	return fmt.Sprintf("MsgAddCollateral{Owner: %s, VaultID: %s, PositionID: %d, Amount: %s}",
		msg.Owner, msg.VaultID, msg.PositionID, msg.Amount)
}

// MsgAddCollateralResponse defines the AddCollateral response
type MsgAddCollateralResponse struct {
	Health string `json:"health"`
}

// MsgKill liquidates an unhealthy position
type MsgKill struct {
	Killer     string `json:"killer"`
	VaultID    string `json:"vault_id"`
	PositionID uint64 `json:"position_id"`
}

func (msg MsgKill) Route() string { return ModuleName }
func (msg MsgKill) Type() string { return TypeMsgKill }

// ValidateBasic implements sdk.Msg
func (msg MsgKill) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Killer); err != nil {
		return err
	}
	if msg.PositionID == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgKill) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Killer)
	return []sdk.AccAddress{addr}
}

func (*MsgKill) ProtoMessage() {}
func (msg *MsgKill) Reset() { *msg = MsgKill{} }
func (msg MsgKill) String() string {
	return fmt.Sprintf("MsgKill{Killer: %s, VaultID: %s, PositionID: %d}", msg.Killer, msg.VaultID, msg.PositionID)
}

// MsgKillResponse defines the Kill response
type MsgKillResponse struct {
	Record KillRecord `json:"record"`
}
