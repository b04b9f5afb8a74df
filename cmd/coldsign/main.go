package main

import (
	"fmt"
	"os"

	"github.com/danmuck/coldsign/internal/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const usage = `usage: coldsign <command> [flags]

commands:
  scan      read scanned codes and run signing sessions
  networks  list the built-in network catalog
  config    write or validate config templates
  seal      seal an account seed under a pin
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("coldsign .env not found, relying on environment variables")
	}
	logging.ConfigureRuntime()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:], os.Stdin, os.Stdout)
	case "networks":
		err = runNetworks(os.Args[2:], os.Stdout)
	case "config":
		err = runConfig(os.Args[2:], os.Stdout)
	case "seal":
		err = runSeal(os.Args[2:], newPrompter(os.Stdin, os.Stderr), os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		fatalf("unknown command %q", os.Args[1])
	}
	if err != nil {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "coldsign: "+format+"\n", args...)
	os.Exit(1)
}
