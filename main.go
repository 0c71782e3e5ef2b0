// Package main is the entry point for mpfront.
package main

import (
	"github.com/mpfront/mpfront/cmd"
	"github.com/mpfront/mpfront/config"
	"github.com/mpfront/mpfront/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
