package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrVaultNotFound          = errors.Register(ModuleName, 2, "vault not found")
	ErrVaultExists            = errors.Register(ModuleName, 3, "vault already exists")
	ErrInvalidConfig          = errors.Register(ModuleName, 4, "invalid vault config")
	ErrInsufficientLiquidity  = errors.Register(ModuleName, 5, "insufficient liquidity")
	ErrInsufficientBalance    = errors.Register(ModuleName, 6, "insufficient balance")
	ErrTooSmallDebt           = errors.Register(ModuleName, 7, "debt below minimum size")
	ErrBadWorkFactor          = errors.Register(ModuleName, 8, "debt exceeds work factor")
	ErrCannotLiquidate        = errors.Register(ModuleName, 9, "position is healthy")
	ErrNotAuthorized          = errors.Register(ModuleName, 10, "not authorized")
	ErrPositionNotFound       = errors.Register(ModuleName, 11, "position not found")
	ErrWorkerNotAcceptingDebt = errors.Register(ModuleName, 12, "worker not accepting debt")
	ErrUnapprovedStrategy     = errors.Register(ModuleName, 13, "strategy not approved for add collateral")
	ErrReentrantCall          = errors.Register(ModuleName, 14, "reentrant call")
	ErrInvalidAmount          = errors.Register(ModuleName, 15, "invalid amount")
	ErrUnknownWorker          = errors.Register(ModuleName, 16, "worker not registered with vault")
	ErrVaultInsolvent         = errors.Register(ModuleName, 17, "vault has shares but no value")
)
