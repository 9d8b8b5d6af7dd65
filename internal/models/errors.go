package models

import "errors"

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidVolume = errors.New("invalid volume")
	ErrInvalidWindow = errors.New("invalid moving average window")
)
