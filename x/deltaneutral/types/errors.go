package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrVaultNotFound           = errors.Register(ModuleName, 2, "delta-neutral vault not found")
	ErrVaultExists             = errors.Register(ModuleName, 3, "delta-neutral vault already exists")
	ErrInvalidConfig           = errors.Register(ModuleName, 4, "invalid delta-neutral config")
	ErrNotAuthorized           = errors.Register(ModuleName, 5, "not authorized")
	ErrInvalidAction           = errors.Register(ModuleName, 6, "invalid action")
	ErrAlreadyInitialized      = errors.Register(ModuleName, 7, "positions already initialized")
	ErrNotInitialized          = errors.Register(ModuleName, 8, "positions not initialized")
	ErrStalePrice              = errors.Register(ModuleName, 9, "stale oracle price")
	ErrUnsafePositionEquity    = errors.Register(ModuleName, 10, "unsafe position equity")
	ErrUnsafePositionValue     = errors.Register(ModuleName, 11, "unsafe position value")
	ErrUnsafeDebtRatio         = errors.Register(ModuleName, 12, "unsafe debt ratio")
	ErrRebalanceNotNeeded      = errors.Register(ModuleName, 13, "rebalance not needed")
	ErrBadReinvestPath         = errors.Register(ModuleName, 14, "bad reinvest path")
	ErrBelowMinSwapOut         = errors.Register(ModuleName, 15, "output below minimum")
	ErrInsufficientShares      = errors.Register(ModuleName, 16, "insufficient shares received")
	ErrInvalidAmount           = errors.Register(ModuleName, 17, "invalid amount")
	ErrPositionIDMismatch      = errors.Register(ModuleName, 18, "leg position id mismatch")
	ErrInsufficientShareSupply = errors.Register(ModuleName, 19, "shares exceed supply")
)
