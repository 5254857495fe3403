package net

import "errors"

var (
	errShortSockaddr = errors.New("ringloop/net: truncated sockaddr")
	errPathTooLong   = errors.New("ringloop/net: unix socket path too long")
)
