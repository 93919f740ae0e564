// Copyright 2024 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// NewTLSTransport returns a pointer to a new http.Transport with TLS config
// initialized with system certs as well as specified certPaths.  When verify
// is false, peer verification is disabled altogether (appliances ship with
// self-signed certificates) and certPaths is ignored.
func NewTLSTransport(verify bool, certPaths []string) (*http.Transport, error) {
	if !verify {
		return &http.Transport{
			TLSClientConfig: &tls.Config{
				// #nosec G402
				InsecureSkipVerify: true,
				MinVersion:         tls.VersionTLS12,
			},
		}, nil
	}

	certPool, err := x509.SystemCertPool()
	if err != nil {
		return nil, err
	}

	for _, certPath := range certPaths {
		rawCert, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("could not read cert: %w", err)
		}

		if ok := certPool.AppendCertsFromPEM(rawCert); !ok {
			return nil, fmt.Errorf("invalid cert in %s", certPath)
		}
	}

	return &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		},
	}, nil
}
