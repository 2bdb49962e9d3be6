// Package e2e drives the HTTP API through godog feature files.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jwttoken "nameledger/internal/jwt_token"
	id "nameledger/pkg/domain"
)

// TestContext carries one scenario's HTTP state: the acting caller, the last
// response and any values remembered between steps.
type TestContext struct {
	BaseURL string
	Client  *http.Client
	Tokens  *jwttoken.JWTService

	caller     string
	lastStatus int
	lastBody   []byte
	vars       map[string]string
}

func NewTestContext(baseURL string, client *http.Client, tokens *jwttoken.JWTService) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Tokens:  tokens,
		vars:    make(map[string]string),
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.caller = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.vars = make(map[string]string)
}

// ActAs makes later requests carry a bearer token for caller. An empty
// caller sends no credentials.
func (tc *TestContext) ActAs(caller string) {
	tc.caller = caller
}

func (tc *TestContext) Caller() string {
	return tc.caller
}

func (tc *TestContext) Remember(key, value string) {
	tc.vars[key] = value
}

func (tc *TestContext) Recall(key string) (string, bool) {
	v, ok := tc.vars[key]
	return v, ok
}

// Expand replaces {key} placeholders with remembered values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.Do(http.MethodPut, path, body, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.Do(http.MethodDelete, path, nil, nil)
}

// Do sends one request and records the response.
func (tc *TestContext) Do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.caller != "" {
		token, err := tc.Tokens.GenerateToken(id.Identity(tc.caller), time.Hour)
		if err != nil {
			return fmt.Errorf("mint token for %s: %w", tc.caller, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int {
	return tc.lastStatus
}

func (tc *TestContext) ResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField returns a top-level or dotted field of the last JSON
// response, e.g. "record.owner".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w (body %q)", err, tc.lastBody)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return cur, nil
}
