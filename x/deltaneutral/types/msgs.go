package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreateDeltaNeutralVault{},
		&MsgUpdateConfig{},
		&MsgInitPositions{},
		&MsgDeposit{},
		&MsgWithdraw{},
		&MsgReinvest{},
		&MsgRebalance{},
	)
}

// Message types
const (
	TypeMsgCreateDeltaNeutralVault = "create_delta_neutral_vault"
	TypeMsgUpdateConfig            = "update_config"
	TypeMsgInitPositions           = "init_positions"
	TypeMsgDeposit                 = "deposit"
	TypeMsgWithdraw                = "withdraw"
	TypeMsgReinvest                = "reinvest"
	TypeMsgRebalance               = "rebalance"
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

func validActions(actions []Action) error {
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return errorsmod.Wrapf(err, "action %d", i)
		}
	}
	return nil
}

func validDeposit(stable, asset string) error {
	s, err := ParseAmount(stable)
	if err != nil {
		return err
	}
	a, err := ParseAmount(asset)
	if err != nil {
		return err
	}
	if s.IsZero() && a.IsZero() {
		return ErrInvalidAmount.Wrap("deposit must be positive")
	}
	return nil
}

// MsgCreateDeltaNeutralVault registers a delta-neutral vault over two legs (governance only)
type MsgCreateDeltaNeutralVault struct {
	Authority      string             `json:"authority"`
	DNID           string             `json:"dn_id"`
	StableVaultID  string             `json:"stable_vault_id"`
	StableWorkerID string             `json:"stable_worker_id"`
	AssetVaultID   string             `json:"asset_vault_id"`
	AssetWorkerID  string             `json:"asset_worker_id"`
	Config         DeltaNeutralConfig `json:"config"`
}

func (msg MsgCreateDeltaNeutralVault) Route() string { return ModuleName }
func (msg MsgCreateDeltaNeutralVault) Type() string { return TypeMsgCreateDeltaNeutralVault }

// ValidateBasic implements sdk.Msg
func (msg MsgCreateDeltaNeutralVault) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.DNID == "" || msg.StableVaultID == "" || msg.AssetVaultID == "" ||
		msg.StableWorkerID == "" || msg.AssetWorkerID == "" {
		return ErrInvalidConfig.Wrap("vault id and both legs are required")
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgCreateDeltaNeutralVault) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgCreateDeltaNeutralVault) ProtoMessage() {}
func (msg *MsgCreateDeltaNeutralVault) Reset() { *msg = MsgCreateDeltaNeutralVault{} }
func (msg MsgCreateDeltaNeutralVault) String() string {
	return fmt.Sprintf("MsgCreateDeltaNeutralVault{DNID: %s, Stable: %s/%s, Asset: %s/%s}",
		msg.DNID, msg.StableVaultID, msg.StableWorkerID, msg.AssetVaultID, msg.AssetWorkerID)
}

// MsgCreateDeltaNeutralVaultResponse defines the CreateDeltaNeutralVault response
type MsgCreateDeltaNeutralVaultResponse struct {
	ShareDenom string `json:"share_denom"`
}

// MsgUpdateConfig replaces a delta-neutral vault's config (governance only)
type MsgUpdateConfig struct {
	Authority string             `json:"authority"`
	DNID      string             `json:"dn_id"`
	Config    DeltaNeutralConfig `json:"config"`
}

func (msg MsgUpdateConfig) Route() string { return ModuleName }
func (msg MsgUpdateConfig) Type() string { return TypeMsgUpdateConfig }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateConfig) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateConfig) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgUpdateConfig) ProtoMessage() {}
func (msg *MsgUpdateConfig) Reset() { *msg = MsgUpdateConfig{} }
func (msg MsgUpdateConfig) String() string {
	return fmt.Sprintf("MsgUpdateConfig{DNID: %s}", msg.DNID)
}

// MsgUpdateConfigResponse defines the UpdateConfig response
type MsgUpdateConfigResponse struct{}

// MsgInitPositions opens both legs with the first deposit (operators only)
type MsgInitPositions struct {
	Operator     string   `json:"operator"`
	DNID         string   `json:"dn_id"`
	StableAmount string   `json:"stable_amount"`
	AssetAmount  string   `json:"asset_amount"`
	MinShares    string   `json:"min_shares"`
	Actions      []Action `json:"actions,omitempty"`
}

func (msg MsgInitPositions) Route() string { return ModuleName }
func (msg MsgInitPositions) Type() string { return TypeMsgInitPositions }

// ValidateBasic implements sdk.Msg
func (msg MsgInitPositions) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Operator); err != nil {
		return err
	}
	if err := validDeposit(msg.StableAmount, msg.AssetAmount); err != nil {
		return err
	}
	if _, err := ParseAmount(msg.MinShares); err != nil {
		return err
	}
	return validActions(msg.Actions)
}

// GetSigners implements sdk.Msg
func (msg MsgInitPositions) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Operator)
	return []sdk.AccAddress{addr}
}

func (*MsgInitPositions) ProtoMessage() {}
func (msg *MsgInitPositions) Reset() { *msg = MsgInitPositions{} }
func (msg MsgInitPositions) String() string {
	return fmt.Sprintf("MsgInitPositions{DNID: %s, Stable: %s, Asset: %s}", msg.DNID, msg.StableAmount, msg.AssetAmount)
}

// MsgInitPositionsResponse defines the InitPositions response
type MsgInitPositionsResponse struct {
	Shares string `json:"shares"`
}

// MsgDeposit adds equity to an initialized delta-neutral vault
type MsgDeposit struct {
	Depositor    string   `json:"depositor"`
	DNID         string   `json:"dn_id"`
	StableAmount string   `json:"stable_amount"`
	AssetAmount  string   `json:"asset_amount"`
	MinShares    string   `json:"min_shares"`
	Actions      []Action `json:"actions,omitempty"`
}

func (msg MsgDeposit) Route() string { return ModuleName }
func (msg MsgDeposit) Type() string { return TypeMsgDeposit }

// ValidateBasic implements sdk.Msg
func (msg MsgDeposit) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Depositor); err != nil {
		return err
	}
	if err := validDeposit(msg.StableAmount, msg.AssetAmount); err != nil {
		return err
	}
	if _, err := ParseAmount(msg.MinShares); err != nil {
		return err
	}
	return validActions(msg.Actions)
}

// GetSigners implements sdk.Msg
func (msg MsgDeposit) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Depositor)
	return []sdk.AccAddress{addr}
}

func (*MsgDeposit) ProtoMessage() {}
func (msg *MsgDeposit) Reset() { *msg = MsgDeposit{} }
func (msg MsgDeposit) String() string {
	return fmt.Sprintf("MsgDeposit{DNID: %s, Stable: %s, Asset: %s}", msg.DNID, msg.StableAmount, msg.AssetAmount)
}

// MsgDepositResponse defines the Deposit response
type MsgDepositResponse struct {
	Shares string `json:"shares"`
}

// MsgWithdraw redeems shares for both leg denoms
type MsgWithdraw struct {
	Withdrawer      string   `json:"withdrawer"`
	DNID            string   `json:"dn_id"`
	Shares          string   `json:"shares"`
	MinStableAmount string   `json:"min_stable_amount"`
	MinAssetAmount  string   `json:"min_asset_amount"`
	Actions         []Action `json:"actions,omitempty"`
}

func (msg MsgWithdraw) Route() string { return ModuleName }
func (msg MsgWithdraw) Type() string { return TypeMsgWithdraw }

// ValidateBasic implements sdk.Msg
func (msg MsgWithdraw) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Withdrawer); err != nil {
		return err
	}
	shares, err := ParseAmount(msg.Shares)
	if err != nil {
		return err
	}
	if !shares.IsPositive() {
		return ErrInvalidAmount.Wrap("shares must be positive")
	}
	for _, s := range []string{msg.MinStableAmount, msg.MinAssetAmount} {
		if _, err := ParseAmount(s); err != nil {
			return err
		}
	}
	return validActions(msg.Actions)
}

// GetSigners implements sdk.Msg
func (msg MsgWithdraw) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Withdrawer)
	return []sdk.AccAddress{addr}
}

func (*MsgWithdraw) ProtoMessage() {}
func (msg *MsgWithdraw) Reset() { *msg = MsgWithdraw{} }
func (msg MsgWithdraw) String() string {
	return fmt.Sprintf("MsgWithdraw{DNID: %s, Shares: %s}", msg.DNID, msg.Shares)
}

// MsgWithdrawResponse defines the Withdraw response
type MsgWithdrawResponse struct {
	StableAmount string `json:"stable_amount"`
	AssetAmount  string `json:"asset_amount"`
}

// MsgReinvest compounds both legs' farm rewards (reinvestors only)
type MsgReinvest struct {
	Reinvestor      string   `json:"reinvestor"`
	DNID            string   `json:"dn_id"`
	MinTokenReceive string   `json:"min_token_receive"`
	Actions         []Action `json:"actions,omitempty"`
}

func (msg MsgReinvest) Route() string { return ModuleName }
func (msg MsgReinvest) Type() string { return TypeMsgReinvest }

// ValidateBasic implements sdk.Msg
func (msg MsgReinvest) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Reinvestor); err != nil {
		return err
	}
	if _, err := ParseAmount(msg.MinTokenReceive); err != nil {
		return err
	}
	return validActions(msg.Actions)
}

// GetSigners implements sdk.Msg
func (msg MsgReinvest) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Reinvestor)
	return []sdk.AccAddress{addr}
}

func (*MsgReinvest) ProtoMessage() {}
func (msg *MsgReinvest) Reset() { *msg = MsgReinvest{} }
func (msg MsgReinvest) String() string {
	return fmt.Sprintf("MsgReinvest{DNID: %s}", msg.DNID)
}

// MsgReinvestResponse defines the Reinvest response
type MsgReinvestResponse struct {
	Reward  string `json:"reward"`
	Swapped string `json:"swapped"`
}

// MsgRebalance brings the legs back to target (rebalancers only)
type MsgRebalance struct {
	Rebalancer string   `json:"rebalancer"`
	DNID       string   `json:"dn_id"`
	Actions    []Action `json:"actions"`
}

func (msg MsgRebalance) Route() string { return ModuleName }
func (msg MsgRebalance) Type() string { return TypeMsgRebalance }

// ValidateBasic implements sdk.Msg
func (msg MsgRebalance) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Rebalancer); err != nil {
		return err
	}
	if len(msg.Actions) == 0 {
		return ErrInvalidAction.Wrap("rebalance needs actions")
	}
	return validActions(msg.Actions)
}

// GetSigners implements sdk.Msg
func (msg MsgRebalance) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Rebalancer)
	return []sdk.AccAddress{addr}
}

func (*MsgRebalance) ProtoMessage() {}
func (msg *MsgRebalance) Reset() { *msg = MsgRebalance{} }
func (msg MsgRebalance) String() string {
	return fmt.Sprintf("MsgRebalance{DNID: %s, Actions: %d}", msg.DNID, len(msg.Actions))
}

// MsgRebalanceResponse defines the Rebalance response
type MsgRebalanceResponse struct{}
