/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vc-verifier-rest (Credential Verifier REST Server).
//
//
// Terms Of Service:
//
//
//     Schemes: https
//     Version: 0.1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openvc/vcverifier/cmd/vc-verifier-rest/startcmd"
	"github.com/openvc/vcverifier/cmd/vc-verifier-rest/verifycmd"
	"github.com/openvc/vcverifier/component/log"
)

// This is an application which verifies credentials, either as a REST API or once from the command line.
func main() {
	rootCmd := &cobra.Command{
		Use: "vc-verifier-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("vcverifier/rest")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd, verifycmd.Cmd(os.Stdout))

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run vc-verifier-rest: %s", err)
	}
}
