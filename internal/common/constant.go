// Package common contains shared constants, random helpers and the error
// taxonomy used across pocketledger components.
package common

// TokenMetadataKey is the gRPC metadata key and HTTP form field carrying the
// session token on inbound requests.
const TokenMetadataKey = "token"

// AdminSenderPrefix prefixes the synthetic sender name of administrative
// credits. Usernames may not contain underscores, so the prefix can never
// collide with a real account.
const AdminSenderPrefix = "admin_"
