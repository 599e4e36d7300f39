// Package server mounts the gridgate HTTP surface on a chi router.
//
// Every route under /simulator and /social sits behind the authentication
// gate. Each route then applies the role layer for its operation, and
// per-household routes apply the ownership layer after the household has
// been loaded, so an unknown id answers 404 before any ownership decision.
//
// Health and metrics endpoints are mounted outside the gate.
package server
