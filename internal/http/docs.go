// package http contains the request builder and the response wrapper, which
// the root centra package re-exports as type aliases.
//
// the package also contains some type and value aliases from standard
// library to avoid annoying imports
package http

import (
	"net/http"
)

type Header = http.Header

var NoBody = http.NoBody
