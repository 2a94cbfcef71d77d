package main

import (
	"github.com/MalcolmCusack/zaymo-url-shortener/cmd"

	// Subcommands register themselves with the root command via init().
	_ "github.com/MalcolmCusack/zaymo-url-shortener/cmd/cli"
	_ "github.com/MalcolmCusack/zaymo-url-shortener/cmd/server"
)

func main() {
	cmd.Execute()
}
