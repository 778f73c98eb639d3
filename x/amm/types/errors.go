package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrPoolNotFound          = errors.Register(ModuleName, 2, "pool not found")
	ErrPoolExists            = errors.Register(ModuleName, 3, "pool already exists")
	ErrInvalidPath           = errors.Register(ModuleName, 4, "invalid swap path")
	ErrInsufficientLiquidity = errors.Register(ModuleName, 5, "insufficient pool liquidity")
	ErrSlippage              = errors.Register(ModuleName, 6, "output below minimum")
	ErrInsufficientLP        = errors.Register(ModuleName, 7, "insufficient lp balance")
	ErrFarmNotFound          = errors.Register(ModuleName, 8, "farm not found")
	ErrPriceNotFound         = errors.Register(ModuleName, 9, "price not found")
	ErrUnauthorized          = errors.Register(ModuleName, 10, "unauthorized")
	ErrInvalidAmount         = errors.Register(ModuleName, 11, "invalid amount")
)
