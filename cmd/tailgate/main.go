package main

import (
	"fmt"
	"log"
	"os"
)

const version = "0.1.0"

const usage = `Usage: tailgate <command> [flags]

Commands:
  run       process an image sequence with one detector/descriptor/matcher setup
  compare   run every available detector/descriptor combination and tabulate the results
  serve     serve stored runs and live statistics over HTTP
  variants  list the variants this build supports
  version   print the version

Run "tailgate <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "compare":
		err = compareCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "variants":
		variantsCommand()
	case "version":
		fmt.Println("tailgate", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}
