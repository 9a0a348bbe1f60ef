// Command dciauth signs, verifies and sends DCI authenticated requests and
// runs the reference server.
//
// Usage:
//
//	dciauth sign   -access-key remoteci/ID -secret S -method GET -endpoint /api/v1/jobs
//	dciauth verify -secret S -header "Authorization: ..." -header "X-DCI-Date: ..." ...
//	dciauth call   -config dciauth.yaml -method POST -endpoint /api/v1/echo -payload '{"a": 1}'
//	dciauth serve  -config dciauth.yaml
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return 2
	}

	var err error

	switch args[0] {
	case "sign":
		err = runSign(args[1:], stdout)
	case "verify":
		err = runVerify(args[1:], stdout)
	case "call":
		err = runCall(args[1:], stdout)
	case "serve":
		err = runServe(args[1:], stderr)
	case "help", "-h", "--help":
		printHelp(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printHelp(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `usage: dciauth <command> [flags]

commands:
  sign    print the headers signing a request
  verify  check request headers against a secret
  call    send a signed request using a config file
  serve   run the reference API server`)
}
