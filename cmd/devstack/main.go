package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thisisbailin/Script2Video-sub002/tests/helpers"
	"github.com/joho/godotenv"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the sync service dev stack (MariaDB, Authorizer, sync service) in containers
with the environment variables from the .env file.

Usage:

devstack [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  devstack -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var stack *helpers.TestContainers
	go func() {
		var err error
		stack, err = helpers.CreateAllTestContainers(nil)
		if err != nil {
			log.Fatalf("Failed to create dev stack containers: %v\n", err)
		}
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating dev stack...\n", sig)
	if stack != nil {
		stack.Terminate(nil)
	}
}
