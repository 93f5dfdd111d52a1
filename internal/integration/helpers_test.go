package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":   {},
	"requestId":   {},
	"expiresAt":   {},
	"lockedUntil": {},
	"startTime":   {},
	"sessionId":   {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing; session ids are the only
	// string-typed "id" values in the API, seat cell ids stay comparable
	opts := cmpopts.IgnoreMapEntries(func(k string, v any) bool {
		if _, ok := keysToIgnore[k]; ok {
			return true
		}
		if k == "id" {
			_, isString := v.(string)
			return isString
		}
		return false
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func executeSQLFile(t testing.TB, db *pgxpool.Pool, path string) {
	t.Helper()

	sql, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), string(sql))
	require.NoError(t, err)
}

func flushAllCache(t testing.TB, client *redis.Client) {
	t.Helper()

	require.NoError(t, client.FlushAll(context.Background()).Err())
}

// browser is an http client with a cookie jar, so consecutive requests share
// the guest session the server hands out on first contact.
type browser struct {
	t      testing.TB
	client *http.Client
	base   string
}

func newBrowser(t testing.TB, baseURL string) *browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{
		t:      t,
		client: &http.Client{Jar: jar},
		base:   baseURL,
	}
}

func (b *browser) do(method, path string, body any) *http.Response {
	b.t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(b.t, err)

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := b.client.Do(req)
	require.NoError(b.t, err)

	return res
}

func decodeAs[T any](t testing.TB, res *http.Response) T {
	t.Helper()

	defer res.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))

	return out
}

func countRows(t testing.TB, db *pgxpool.Pool, query string, args ...any) int {
	t.Helper()

	var count int
	err := db.QueryRow(context.Background(), query, args...).Scan(&count)
	require.NoError(t, err)

	return count
}

func requireStatus(t testing.TB, res *http.Response, want int) {
	t.Helper()

	if res.StatusCode != want {
		payload, _ := io.ReadAll(res.Body)
		res.Body.Close()
		require.FailNow(t, fmt.Sprintf("expected status %d, got %d: %s", want, res.StatusCode, payload))
	}
}
