package types

import (
	"fmt"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreateWorker{},
		&MsgUpdateWorkerConfig{},
		&MsgReinvest{},
	)
}

// Message types
const (
	TypeMsgCreateWorker       = "create_worker"
	TypeMsgUpdateWorkerConfig = "update_worker_config"
	TypeMsgReinvest           = "reinvest"
)

// MsgCreateWorker registers a new worker (governance only)
type MsgCreateWorker struct {
	Authority string       `json:"authority"`
	WorkerID  string       `json:"worker_id"`
	Config    WorkerConfig `json:"config"`
}

func (msg MsgCreateWorker) Route() string { return ModuleName }
func (msg MsgCreateWorker) Type() string { return TypeMsgCreateWorker }

// ValidateBasic implements sdk.Msg
func (msg MsgCreateWorker) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.WorkerID == "" {
		return ErrInvalidConfig.Wrap("worker id is required")
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgCreateWorker) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgCreateWorker) ProtoMessage() {}
func (msg *MsgCreateWorker) Reset() { *msg = MsgCreateWorker{} }
func (msg MsgCreateWorker) String() string {
	return fmt.Sprintf("MsgCreateWorker{WorkerID: %s, Vault: %s, Farm: %s}", msg.WorkerID, msg.Config.VaultID, msg.Config.FarmID)
}

// MsgCreateWorkerResponse defines the CreateWorker response
type MsgCreateWorkerResponse struct {
	PoolID string `json:"pool_id"`
}

// MsgUpdateWorkerConfig replaces a worker's config (governance only)
type MsgUpdateWorkerConfig struct {
	Authority string       `json:"authority"`
	WorkerID  string       `json:"worker_id"`
	Config    WorkerConfig `json:"config"`
}

func (msg MsgUpdateWorkerConfig) Route() string { return ModuleName }
func (msg MsgUpdateWorkerConfig) Type() string { return TypeMsgUpdateWorkerConfig }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateWorkerConfig) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	return msg.Config.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateWorkerConfig) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

func (*MsgUpdateWorkerConfig) ProtoMessage() {}
func (msg *MsgUpdateWorkerConfig) Reset() { *msg = MsgUpdateWorkerConfig{} }
func (msg MsgUpdateWorkerConfig) String() string {
	return fmt.Sprintf("MsgUpdateWorkerConfig{WorkerID: %s}", msg.WorkerID)
}

// MsgUpdateWorkerConfigResponse defines the UpdateWorkerConfig response
type MsgUpdateWorkerConfigResponse struct{}

// MsgReinvest compounds a worker's farm reward
type MsgReinvest struct {
	Reinvestor string `json:"reinvestor"`
	WorkerID   string `json:"worker_id"`
	MinSwapOut string `json:"min_swap_out"`
}

func (msg MsgReinvest) Route() string { return ModuleName }
func (msg MsgReinvest) Type() string { return TypeMsgReinvest }

// ValidateBasic implements sdk.Msg
func (msg MsgReinvest) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Reinvestor); err != nil {
		return err
	}
	if msg.WorkerID == "" {
		return ErrWorkerNotFound
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgReinvest) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Reinvestor)
	return []sdk.AccAddress{addr}
}

func (*MsgReinvest) ProtoMessage() {}
func (msg *MsgReinvest) Reset() { *msg = MsgReinvest{} }
func (msg MsgReinvest) String() string {
	return fmt.Sprintf("MsgReinvest{Reinvestor: %s, WorkerID: %s}", msg.Reinvestor, msg.WorkerID)
}

// MsgReinvestResponse defines the Reinvest response
type MsgReinvestResponse struct {
	Result ReinvestResult `json:"result"`
}
