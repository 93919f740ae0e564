// Copyright 2021 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

const (
	JSONMediaType = "application/json"
)

func DecodeJSONBody(res *http.Response, j interface{}) error {
	defer res.Body.Close()

	return json.NewDecoder(res.Body).Decode(j)
}

// DecodeResponse decodes the "response" member of an envelope into out, which
// must be a pointer to a struct with mapstructure tags.  Decoding is weakly
// typed because the appliance is not consistent about quoting numbers (ids
// and tokens come back either as strings or as integers).
func DecodeResponse(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty response payload")
	}

	var generic interface{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil && err != io.EOF {
		return fmt.Errorf("parsing response payload: %w", err)
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := md.Decode(generic); err != nil {
		return fmt.Errorf("decoding response payload: %w", err)
	}

	return nil
}
