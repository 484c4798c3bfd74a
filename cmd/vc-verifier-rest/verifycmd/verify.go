/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifycmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openvc/vcverifier/cmd/vc-verifier-rest/internal/service"
	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/policy"
)

const (
	// credential file flag.
	credentialFileFlagName  = "credential-file"
	credentialFileEnvKey    = "VC_VERIFIER_CREDENTIAL_FILE"
	credentialFileFlagUsage = "Path of the credential to verify: a JSON credential, a JWT, an SD-JWT or a hex or" +
		" base64url mdoc. Alternatively, this can be set with the following environment variable: " +
		credentialFileEnvKey

	// policies flag.
	policiesFlagName  = "policies"
	policiesEnvKey    = "VC_VERIFIER_POLICIES"
	policiesFlagUsage = "JSON array of policies, e.g. '[\"signature\", {\"policy\": \"schema\", \"args\": {...}}]'." +
		" Defaults to signature, expired and not-before." +
		" Alternatively, this can be set with the following environment variable: " + policiesEnvKey

	// json output flag.
	jsonFlagName  = "json"
	jsonFlagUsage = "Print the results as JSON."
)

var errVerificationFailed = errors.New("verification failed")

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

// Cmd returns the Cobra verify command. The report is written to out.
func Cmd(out io.Writer) *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a credential",
		Long:  `Verify a credential file against a list of policies and print the results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := service.GetParameters(cmd)
			if err != nil {
				return err
			}

			file, err := service.GetUserSetVar(cmd, credentialFileFlagName, credentialFileEnvKey, false)
			if err != nil {
				return err
			}

			policies, err := service.GetUserSetVar(cmd, policiesFlagName, policiesEnvKey, true)
			if err != nil {
				return err
			}

			asJSON, err := cmd.Flags().GetBool(jsonFlagName)
			if err != nil {
				return err
			}

			results, err := verify(cmd, params, file, policies)
			if err != nil {
				return err
			}

			if asJSON {
				err = printJSON(out, results)
			} else {
				printResults(out, results)
			}

			if err != nil {
				return err
			}

			if !results.OverallSuccess() {
				return errVerificationFailed
			}

			return nil
		},
		SilenceUsage: true,
	}

	verifyCmd.Flags().StringP(credentialFileFlagName, "c", "", credentialFileFlagUsage)
	verifyCmd.Flags().StringP(policiesFlagName, "p", "", policiesFlagUsage)
	verifyCmd.Flags().Bool(jsonFlagName, false, jsonFlagUsage)

	service.CreateFlags(verifyCmd)

	return verifyCmd
}

func verify(cmd *cobra.Command, params *service.Parameters, file, policies string) (*policy.Results, error) {
	data, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	cred, err := credential.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	services, err := service.Build(params, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	var list policy.List

	if policies != "" {
		list, err = policy.ParseList(services.Registry, []byte(policies))
		if err != nil {
			return nil, fmt.Errorf("parse policies: %w", err)
		}
	}

	return services.Verifier.Verify(cmd.Context(), cred, list), nil
}

func printJSON(out io.Writer, results *policy.Results) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func printResults(out io.Writer, results *policy.Results) {
	headerColor.Fprintf(out, "Verification %s\n", results.ID) //nolint:errcheck

	for _, res := range results.VCPolicies {
		if res.Success {
			successColor.Fprintf(out, "  ✓ %s\n", res.Policy) //nolint:errcheck

			continue
		}

		errorColor.Fprintf(out, "  ✗ %s: %s", res.Policy, res.Error) //nolint:errcheck

		if res.ErrorKind != "" {
			dimColor.Fprintf(out, " (%s)", res.ErrorKind) //nolint:errcheck
		}

		fmt.Fprintln(out)
	}

	summary := strconv.Itoa(results.Count()-len(results.Failures())) + "/" + strconv.Itoa(results.Count()) +
		" policies passed"

	if results.OverallSuccess() {
		successColor.Fprintf(out, "VALID: %s\n", summary) //nolint:errcheck
	} else {
		errorColor.Fprintf(out, "INVALID: %s\n", summary) //nolint:errcheck
	}
}
