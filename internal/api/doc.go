// Package api is the HTTP transport of the order service, built on gin.
//
// Routes live under /api. POST /api/login and GET /api/health are open. All
// other routes need the operator passphrase in the X-Passphrase header or
// the pass query parameter; the passphrase is compared against a bcrypt
// hash.
//
// Errors are returned as {"error": "..."} with these statuses:
//   - 400: validation failure or unknown status value
//   - 404: unknown order, item or menu version
//   - 409: the order is busy with another change
//   - 502: the kitchen channel rejected the message
//   - 500: anything else
package api
