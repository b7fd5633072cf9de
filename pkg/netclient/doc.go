// Package netclient executes HTTP requests described by callers and returns
// either a decoded typed payload or a classified *Error.
//
// A request is any value implementing Request. Declaring the success and
// server error payload types turns it into a Descriptor:
//
//	type getUser struct {
//		netclient.Expects[User, APIError]
//		ID int
//	}
//
// Perform decodes 2xx bodies into the success type and non-2xx bodies into
// the error type. PerformRaw skips decoding and passes every status through.
// Network I/O is delegated to a Transport; see package httpclient for the
// resty-backed implementation.
package netclient
