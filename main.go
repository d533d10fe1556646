// Package main contains the main executable of automeet.
package main

import (
	"context"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/cmd"
)

func main() {
	gs := state.NewGlobalState(context.Background())
	cmd.ExecuteWithGlobalState(gs)
}
