package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tidwall/pretty"
)

// encodeJSON marshals v, indenting the output when indent is set.
func encodeJSON(v interface{}, indent bool) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if indent {
		return pretty.Pretty(data), nil
	}
	return append(data, '\n'), nil
}

// wantsPretty reports whether the request asked for indented output.
func wantsPretty(r *http.Request) bool {
	if r == nil {
		return false
	}
	ok, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
	return ok
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := encodeJSON(v, wantsPretty(r))
	if err != nil {
		http.Error(w, `{"error":{"message":"encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}
