package main

import (
	"os"

	"github.com/rongwang/billing-server/internal/admin"
)

func main() {
	if err := admin.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
