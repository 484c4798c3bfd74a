/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/openvc/vcverifier/cmd/vc-verifier-rest/internal/service"
	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/controller"
)

const (
	// api host flag.
	hostFlagName      = "api-host"
	hostEnvKey        = "VC_VERIFIER_API_HOST"
	hostFlagShorthand = "a"
	hostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + hostEnvKey

	// api token flag.
	tokenFlagName      = "api-token"
	tokenEnvKey        = "VC_VERIFIER_API_TOKEN" // nolint:gosec
	tokenFlagShorthand = "t"
	tokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + tokenEnvKey

	// verification timeout flag.
	verifyTimeoutFlagName  = "verification-timeout"
	verifyTimeoutEnvKey    = "VC_VERIFIER_VERIFICATION_TIMEOUT"
	verifyTimeoutFlagUsage = "Deadline of one verification request, as a duration (e.g. 30s). No deadline if not set." +
		" Alternatively, this can be set with the following environment variable: " + verifyTimeoutEnvKey

	// TLS cert file flag.
	tlsCertFileFlagName  = "tls-cert-file"
	tlsCertFileEnvKey    = "VC_VERIFIER_TLS_CERT_FILE"
	tlsCertFileFlagUsage = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + tlsCertFileEnvKey

	// TLS key file flag.
	tlsKeyFileFlagName  = "tls-key-file"
	tlsKeyFileEnvKey    = "VC_VERIFIER_TLS_KEY_FILE"
	tlsKeyFileFlagUsage = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + tlsKeyFileEnvKey

	metricsPath = "/metrics"
)

var errMissingHost = errors.New("host not provided")

var logger = log.New("vcverifier/rest")

type verifierParameters struct {
	server        server
	host          string
	token         string
	tlsCertFile   string
	tlsKeyFile    string
	verifyTimeout time.Duration
	services      *service.Parameters
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual HTTP server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router)
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the verifier",
		Long:  `Start the credential verifier REST API`,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := service.GetParameters(cmd)
			if err != nil {
				return err
			}

			host, err := service.GetUserSetVar(cmd, hostFlagName, hostEnvKey, false)
			if err != nil {
				return err
			}

			token, err := service.GetUserSetVar(cmd, tokenFlagName, tokenEnvKey, true)
			if err != nil {
				return err
			}

			verifyTimeout, err := getVerifyTimeout(cmd)
			if err != nil {
				return err
			}

			tlsCertFile, err := service.GetUserSetVar(cmd, tlsCertFileFlagName, tlsCertFileEnvKey, true)
			if err != nil {
				return err
			}

			tlsKeyFile, err := service.GetUserSetVar(cmd, tlsKeyFileFlagName, tlsKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &verifierParameters{
				server:        server,
				host:          host,
				token:         token,
				tlsCertFile:   tlsCertFile,
				tlsKeyFile:    tlsKeyFile,
				verifyTimeout: verifyTimeout,
				services:      services,
			}

			return startVerifier(parameters)
		},
	}
}

func getVerifyTimeout(cmd *cobra.Command) (time.Duration, error) {
	value, err := service.GetUserSetVar(cmd, verifyTimeoutFlagName, verifyTimeoutEnvKey, true)
	if err != nil || value == "" {
		return 0, err
	}

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s [%s] : %w", verifyTimeoutFlagName, value, err)
	}

	return timeout, nil
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(hostFlagName, hostFlagShorthand, "", hostFlagUsage)
	startCmd.Flags().StringP(tokenFlagName, tokenFlagShorthand, "", tokenFlagUsage)
	startCmd.Flags().StringP(verifyTimeoutFlagName, "", "", verifyTimeoutFlagUsage)
	startCmd.Flags().StringP(tlsCertFileFlagName, "", "", tlsCertFileFlagUsage)
	startCmd.Flags().StringP(tlsKeyFileFlagName, "", "", tlsKeyFileFlagUsage)

	service.CreateFlags(startCmd)
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

// newRouter builds the verifier routes. The metrics route sits outside the token check.
func newRouter(parameters *verifierParameters) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := service.Build(parameters.services, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification services : %w", err)
	}

	// get all HTTP REST API handlers available for controller API
	handlers := controller.GetRESTHandlers(services.Registry, services.Verifier,
		controller.WithRecorder(services.Metrics), controller.WithVerificationTimeout(parameters.verifyTimeout))

	router := mux.NewRouter()
	router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()

	if parameters.token != "" {
		api.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		api.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router), nil
}

func startVerifier(parameters *verifierParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	handler, err := newRouter(parameters)
	if err != nil {
		return fmt.Errorf("failed to start verifier rest on port [%s] : %w", parameters.host, err)
	}

	logger.Infof("Starting verifier rest on host [%s]", parameters.host)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start verifier rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}
