// Package tenancysdk holds the wire types of the tenancy service's HTTP API
// and a thin client for calling it. The server's handlers and the client
// share these types so the two cannot drift apart.
package tenancysdk
