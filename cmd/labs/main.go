// Command labs is a terminal client for the Voice Future LABS voice
// assistant. It streams the microphone to the backend over a WebSocket,
// plays the spoken replies and prints the conversation.
//
// Usage:
//
//	labs run                       # talk to the backend in labs.yaml
//	labs run --tts piper --stt 5   # pick pipeline components by name or ID
//	labs options                   # list the available components
//	labs validate -c prod.yaml     # check a config file
//	labs feedback                  # print the feedback form link
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "labs: %v\n", err)
		os.Exit(1)
	}
}
