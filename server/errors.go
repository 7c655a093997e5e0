package server

import "errors"

// ErrTransport is wrapped around errors returned by the serial link.
var ErrTransport = errors.New("server: transport error")
