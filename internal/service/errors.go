package service

import "errors"

var (
	ErrSameToken     = errors.New("pool tokens must be distinct")
	ErrPoolShape     = errors.New("tokens, weights and deposits differ in length")
	ErrEmptyReserves = errors.New("empty reserves")
)
