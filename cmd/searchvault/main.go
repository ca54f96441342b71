package main

import (
	"os"

	"github.com/edvin/searchvault/internal/ctl"
)

func main() {
	os.Exit(ctl.Execute())
}
