package web

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keks/mempart/memfile"
)

type request struct {
	method string
	path   string
	body   string

	expStatus int
	expBody   string
}

func (req request) Do(t *testing.T, h http.Handler) []byte {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(req.method, req.path, strings.NewReader(req.body)))

	res := rec.Result()
	data, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, req.expStatus, res.StatusCode, "%s %s: %s", req.method, req.path, data)
	if req.expBody != "" {
		require.Equal(t, req.expBody, string(data))
	}
	return data
}

func TestServer(t *testing.T) {
	type testcase struct {
		name     string
		capacity int
		reqs     []request
	}

	mktest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			p, err := memfile.New(tc.capacity)
			require.NoError(t, err)

			h := NewServer(p).Handler()
			for _, req := range tc.reqs {
				req.Do(t, h)
			}
		}
	}

	var tcs = []testcase{
		{
			name:     "put then get",
			capacity: 32,
			reqs: []request{
				{method: "PUT", path: "/files/a", body: "hello", expStatus: http.StatusNoContent},
				{method: "GET", path: "/files/a", expStatus: http.StatusOK, expBody: "hello"},
				{method: "PUT", path: "/files/a", body: "bye", expStatus: http.StatusNoContent},
				{method: "GET", path: "/files/a", expStatus: http.StatusOK, expBody: "bye"},
			},
		},
		{
			name:     "append",
			capacity: 8,
			reqs: []request{
				{method: "POST", path: "/files/log", body: "abc", expStatus: http.StatusNoContent},
				{method: "POST", path: "/files/log", body: "def", expStatus: http.StatusNoContent},
				{method: "GET", path: "/files/log", expStatus: http.StatusOK, expBody: "abcdef"},
				{method: "POST", path: "/files/log", body: "ghi", expStatus: http.StatusInsufficientStorage},
				{method: "GET", path: "/files/log", expStatus: http.StatusOK, expBody: "abcdef"},
			},
		},
		{
			name:     "capacity",
			capacity: 4,
			reqs: []request{
				{method: "PUT", path: "/files/a", body: "abcde", expStatus: http.StatusInsufficientStorage},
				{method: "PUT", path: "/files/a", body: "abcd", expStatus: http.StatusNoContent},
				// replacing frees the old content first
				{method: "PUT", path: "/files/a", body: "wxyz", expStatus: http.StatusNoContent},
				{method: "PUT", path: "/files/b", body: "x", expStatus: http.StatusInsufficientStorage},
			},
		},
		{
			name:     "missing and bad names",
			capacity: 4,
			reqs: []request{
				{method: "GET", path: "/files/nope", expStatus: http.StatusNotFound},
				{method: "DELETE", path: "/files/nope", expStatus: http.StatusNotFound},
				{method: "PUT", path: "/files/0123456789abcdef", body: "a", expStatus: http.StatusBadRequest},
			},
		},
		{
			name:     "rename and delete",
			capacity: 16,
			reqs: []request{
				{method: "PUT", path: "/files/a", body: "1", expStatus: http.StatusNoContent},
				{method: "PUT", path: "/files/b", body: "2", expStatus: http.StatusNoContent},
				{method: "POST", path: "/files/a/rename/b", expStatus: http.StatusConflict},
				{method: "POST", path: "/files/a/rename/c", expStatus: http.StatusNoContent},
				{method: "GET", path: "/files/c", expStatus: http.StatusOK, expBody: "1"},
				{method: "DELETE", path: "/files/c", expStatus: http.StatusNoContent},
				{method: "GET", path: "/files/c", expStatus: http.StatusNotFound},
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, mktest(tc))
	}
}

func TestServerListAndImage(t *testing.T) {
	r := require.New(t)

	p, err := memfile.New(16)
	r.NoError(err)
	h := NewServer(p).Handler()

	request{method: "PUT", path: "/files/b", body: "bb", expStatus: http.StatusNoContent}.Do(t, h)
	request{method: "PUT", path: "/files/a", body: "a", expStatus: http.StatusNoContent}.Do(t, h)

	data := request{method: "GET", path: "/files", expStatus: http.StatusOK}.Do(t, h)

	var m memfile.Manifest
	r.NoError(json.Unmarshal(data, &m))
	r.Equal(memfile.Manifest{
		Capacity: 16,
		Used:     3,
		Free:     13,
		Entries: []memfile.ManifestEntry{
			{Name: "b", Size: 2, Content: true},
			{Name: "a", Size: 1, Content: true},
		},
	}, m)

	image := request{method: "GET", path: "/image", expStatus: http.StatusOK}.Do(t, h)

	q, err := memfile.LoadFrom(bytes.NewReader(image))
	r.NoError(err)
	r.Equal(m, q.Manifest())
}
