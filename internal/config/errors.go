package config

import "errors"

// ErrMissingRPCEndpoint indicates that ETH_RPC_URL is required by the caller
// but not set in the environment.
var ErrMissingRPCEndpoint = errors.New("missing ETH_RPC_URL environment variable")

// ErrInvalidEnvironment wraps a variable that could not be parsed into its field.
var ErrInvalidEnvironment = errors.New("invalid environment")

// ErrInvalidLogFormat is returned when LOG_FORMAT is neither text nor json.
var ErrInvalidLogFormat = errors.New("invalid LOG_FORMAT")

// ErrInvalidSolver is returned when the SOLVER_* variables do not describe a
// usable solver configuration.
var ErrInvalidSolver = errors.New("invalid solver configuration")
