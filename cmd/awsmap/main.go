package main

import (
	"github.com/awsmap/awsmap/pkg/cli"
)

// Version is overridden at release time via -ldflags.
var Version = "dev"

func main() {
	am := cli.AwsmapMain{
		Version: Version,
	}

	am.Main()
}
