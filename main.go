package main

import "github.com/easynet-world/easy-mcp-server/cmd"

// version can be set at build time with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
