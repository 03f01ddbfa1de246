package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	configFile := flag.String("config", "./config.yml", "path to the yaml configuration file")
	envFile := flag.String("env", "./config.env", "path to the dotenv file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] [-env file] <command> [args]\n\n%s\n", os.Args[0], commandsUsage)
		flag.PrintDefaults()
	}
	flag.Parse()

	app, err := NewApp(*configFile, *envFile, os.Stdout)
	if err != nil {
		log.Fatal("application failed to initialize: ", err)
	}
	if err = app.Run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ExitCode(err))
	}
}
