package types

import (
	"fmt"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreatePool{},
		&MsgSwap{},
		&MsgCreateFarm{},
		&MsgSetPrice{},
		&MsgUpdateParams{},
	)
}

// Message types
const (
	TypeMsgCreatePool   = "create_pool"
	TypeMsgSwap         = "swap"
	TypeMsgCreateFarm   = "create_farm"
	TypeMsgSetPrice     = "set_price"
	TypeMsgUpdateParams = "update_params"
)

// Params holds the oracle feeder allow-list
type Params struct {
	Feeders []string `json:"feeders"`
}

// MsgCreatePool seeds a new pool from the creator's balance
type MsgCreatePool struct {
	Creator string `json:"creator"`
	DenomA  string `json:"denom_a"`
	AmountA string `json:"amount_a"`
	DenomB  string `json:"denom_b"`
	AmountB string `json:"amount_b"`
	FeeBps  uint32 `json:"fee_bps"`
}

func (msg MsgCreatePool) Route() string { return ModuleName }
func (msg MsgCreatePool) Type() string { return TypeMsgCreatePool }

// ValidateBasic implements sdk.Msg
func (msg MsgCreatePool) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return err
	}
	if msg.DenomA == "" || msg.DenomB == "" || msg.DenomA == msg.DenomB {
		return ErrInvalidPath
	}
	if msg.FeeBps >= BpsDenominator {
		return ErrInvalidAmount
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgCreatePool) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{addr}
}

func (*MsgCreatePool) ProtoMessage() {}
func (msg *MsgCreatePool) Reset() { *msg = MsgCreatePool{} }
func (msg MsgCreatePool) String() string {
	return fmt.Sprintf("MsgCreatePool{Creator: %s, %s%s / %s%s}", msg.Creator, msg.AmountA, msg.DenomA, msg.AmountB, msg.DenomB)
}

// MsgCreatePoolResponse defines the CreatePool response
type MsgCreatePoolResponse struct {
	PoolID     string `json:"pool_id"`
	LPReceived string `json:"lp_received"`
}

// MsgSwap swaps an exact input along a denom path
type MsgSwap struct {
	Sender   string   `json:"sender"`
	AmountIn string   `json:"amount_in"`
	Path     []string `json:"path"`
	MinOut   string   `json:"min_out"`
}

func (msg MsgSwap) Route() string { return ModuleName }
func (msg MsgSwap) Type() string { return TypeMsgSwap }

// ValidateBasic implements sdk.Msg
func (msg MsgSwap) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Sender); err != nil {
		return err
	}
	if len(msg.Path) < 2 {
		return ErrInvalidPath
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgSwap) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{addr}
}

func (*MsgSwap) ProtoMessage() {}
func (msg *MsgSwap) Reset() { *msg = MsgSwap{} }
func (msg MsgSwap) String() string {
	return fmt.Sprintf("MsgSwap{Sender: %s, AmountIn: %s, Path: %v}", msg.Sender, msg.AmountIn, msg.Path)
}

// MsgSwapResponse defines the Swap response
type MsgSwapResponse struct {
	AmountOut string `json:"amount_out"`
}

// MsgCreateFarm registers a reward stream for a pool's LP
type MsgCreateFarm struct {
	Authority         string `json:"authority"`
	FarmID            string `json:"farm_id"`
	PoolID            string `json:"pool_id"`
	RewardDenom       string `json:"reward_denom"`
	RewardPerSecond   string `json:"reward_per_second"`
	PerformanceFeeBps uint32 `json:"performance_fee_bps"`
}

func (msg MsgCreateFarm) Route() string { return ModuleName }
func (msg MsgCreateFarm) Type() string { return TypeMsgCreateFarm }

// ValidateBasic implements sdk.Msg
func (msg MsgCreateFarm) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.FarmID == "" || msg.PoolID == "" || msg.RewardDenom == "" {
		return ErrFarmNotFound
	}
	if msg.PerformanceFeeBps > BpsDenominator {
		return ErrInvalidAmount
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgCreateFarm) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgCreateFarm) ProtoMessage() {}
func (msg *MsgCreateFarm) Reset() { *msg = MsgCreateFarm{} }
func (msg MsgCreateFarm) String() string {
	return fmt.Sprintf("MsgCreateFarm{FarmID: %s, PoolID: %s, Reward: %s}", msg.FarmID, msg.PoolID, msg.RewardDenom)
}

// MsgCreateFarmResponse defines the CreateFarm response
type MsgCreateFarmResponse struct{}

// MsgSetPrice records an oracle price for a denom
type MsgSetPrice struct {
	Feeder string `json:"feeder"`
	Denom  string `json:"denom"`
	Price  string `json:"price"`
}

func (msg MsgSetPrice) Route() string { return ModuleName }
func (msg MsgSetPrice) Type() string { return TypeMsgSetPrice }

// ValidateBasic implements sdk.Msg
func (msg MsgSetPrice) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Feeder); err != nil {
		return err
	}
	if msg.Denom == "" {
		return ErrPriceNotFound
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgSetPrice) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Feeder)
	return []sdk.AccAddress{addr}
}

func (*MsgSetPrice) ProtoMessage() {}
func (msg *MsgSetPrice) Reset() { *msg = MsgSetPrice{} }
func (msg MsgSetPrice) String() string {
	return fmt.Sprintf("MsgSetPrice{Feeder: %s, Denom: %s, Price: %s}", msg.Feeder, msg.Denom, msg.Price)
}

// MsgSetPriceResponse defines the SetPrice response
type MsgSetPriceResponse struct{}

// MsgUpdateParams replaces the module params
type MsgUpdateParams struct {
	Authority string `json:"authority"`
	Params    Params `json:"params"`
}

func (msg MsgUpdateParams) Route() string { return ModuleName }
func (msg MsgUpdateParams) Type() string { return TypeMsgUpdateParams }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateParams) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Authority)
	return err
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateParams) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgUpdateParams) ProtoMessage() {}
func (msg *MsgUpdateParams) Reset() { *msg = MsgUpdateParams{} }
func (msg MsgUpdateParams) String() string {
	return fmt.Sprintf("MsgUpdateParams{Authority: %s}", msg.Authority)
}

// MsgUpdateParamsResponse defines the UpdateParams response
type MsgUpdateParamsResponse struct{}
