// Package client is the HTTP layer between the Coffeedia CLI and its backend.
//
// # Overview
//
// APIClient sends JSON requests below a base URL and unwraps the backend's
// {success|status, message, data} envelope. Its http.Client runs through an
// auth transport that:
//  1. attaches "Authorization: Bearer <token>" from the TokenStore to every
//     request except login, signup and refresh;
//  2. on a 401 renews the access token once and re-issues the request.
//
// Renewal is single-flight: however many requests fail together, one refresh
// call is made and every one of them is retried or rejected with its result.
// When renewal is impossible the stored session is cleared and the
// OnSessionExpired listeners run before any waiting request returns.
//
// InitDatabase and RunMigrations open the local SQLite database and apply
// the embedded goose migrations.
//
// # Error Handling
//
// Failures match the sentinels with errors.Is. Backend rejections are
// *APIError values carrying the HTTP status and message; transport failures
// and timeouts wrap ErrNetwork.
package client
