package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/internal/httpclient"
	"github.com/glimpse-search/glimpse/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorEnvelope struct {
	Error *types.Error `json:"error"`
}

// writeError maps a domain error onto the JSON envelope. Rate-limited
// responses carry a Retry-After header, from the upstream hint when one
// exists.
func writeError(w http.ResponseWriter, err error) {
	de := types.AsError(err)
	status := de.Kind.HTTPStatus()

	if status == http.StatusTooManyRequests {
		retry := de.RetryAfter
		var re *httpclient.RetryableError
		if retry == 0 && errors.As(err, &re) {
			retry = re.RetryAfter
		}
		if retry == 0 {
			retry = 30 * time.Second
		}
		w.Header().Set("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
	}

	writeJSON(w, status, errorEnvelope{Error: de})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
