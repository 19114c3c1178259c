package main

import (
	"fmt"

	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/internal/transport/gobwas"
	"github.com/omochice/relay-chat/internal/transport/gorilla"
	"github.com/omochice/relay-chat/internal/transport/nhooyr"
)

// maxFrameSize bounds inbound frames on transports that enforce a read limit.
const maxFrameSize = 1 << 16

func newDialer(kind string) (transport.Dialer, error) {
	switch kind {
	case "gorilla", "":
		return gorilla.NewDialer(), nil
	case "gobwas":
		return gobwas.NewDialer(), nil
	case "nhooyr":
		return nhooyr.NewDialer(maxFrameSize), nil
	default:
		return nil, fmt.Errorf("unknown transport: %s", kind)
	}
}
