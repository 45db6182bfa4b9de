// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [CredentialRepository] : Single-row store for the access and refresh token pair
//   - [UserRepository] : Cached profile of the signed-in account
//   - [ThreadCacheRepository] : Read-only copies of the thread listing for offline use
//
// Schemas are created by the embedded migrations in the shared package.
// Nothing here is authoritative; the server owns every record except the credentials.
package repositories
