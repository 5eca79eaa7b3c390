// Package api serves the host callback surface of the mailcow provisioning
// module: one JSON endpoint per lifecycle event, authenticated with the
// X-API-Key header.
package api
