// Package client talks to the pocketledger server over gRPC.
//
// GRPCClient keeps the session token obtained by Login and attaches it to
// every outgoing call through a unary interceptor. Status errors are mapped
// to ErrUnavailable, ErrUnauthorized or a *RemoteError carrying the server's
// error code, so callers can match them with errors.Is and errors.As.
package client
