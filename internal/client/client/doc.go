// Package client connects the journal CLI to its backends.
//
// # Overview
//
// The package provides:
//  1. GRPCClient, the client of the hosted journal service. It attaches the
//     access token, API key and project id to every call, refreshes an
//     expired access token once and retries, and maps gRPC status codes to
//     the sentinel errors of package common.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite file and applying the embedded goose migrations.
//
// # Error Handling
//
// Callers match failures with errors.Is: ErrUnavailable, ErrUnauthorized,
// common.ErrorNotFound, common.ErrorPermissionDenied, common.ErrorValidation
// and common.ErrIndexMissing (the server cannot run an ordered listing).
//
// All operations accept context.Context and honor cancellation.
package client
