// Package client talks to the gophauth account service over gRPC.
//
// GRPCClient keeps the session obtained by Login in memory, attaches the
// access token to calls that need one and, when the server rejects it,
// refreshes it once with the refresh token and retries the call.
//
// Server failures come back as errors matchable with errors.Is against
// ErrUnavailable, ErrUnauthorized and the sentinels in internal/common
// (for example common.ErrAccountLocked or common.ErrDuplicateEmail).
package client
