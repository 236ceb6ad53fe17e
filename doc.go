// Package identity implements a bearer-credential lifecycle: HMAC-signed
// JWT minting and verification, password and social login resolution, and
// stateful session control through refresh rotation and revocation.
//
// Token codec:
//   - TokenCodec mints access and refresh tokens that carry the account
//     uuid, role, and login channel. Parse verifies signature and shape
//     only; expiry is a separate check so callers can tell a tampered
//     token from a stale one.
//
// Sessions:
//   - SessionManager ties the pieces together. Login exchanges
//     credentials for a TokenPair, Refresh rotates single-use refresh
//     tokens, and LogoutAccess blacklists the access token while tearing
//     down the account's entire refresh chain. Session state lives only
//     in a RevocationStore (in-memory or Redis); there is no session
//     table.
//
// Identity resolution:
//   - Resolver maps login assertions to accounts. Password logins look
//     up existing accounts by email, phone, uuid, or username. OAuth and
//     passwordless logins create an account on first sight, with a
//     generated unique username.
package identity
