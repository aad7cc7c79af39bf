package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gitnet/internal/errors"
	"gitnet/internal/paths"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// QueryParamInt extracts a non-negative integer query parameter with a
// default value.
func QueryParamInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(errors.ValidationFailed, fmt.Sprintf("invalid %s parameter", name), err, nil)
	}
	if i < 0 {
		return 0, errors.New(errors.ValidationFailed, name+" must be non-negative", nil, nil)
	}
	return i, nil
}

// QueryParamBool extracts a boolean query parameter with a default value
func QueryParamBool(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// resolveRepo maps a client path to the root of an open repository.
func (s *Server) resolveRepo(w http.ResponseWriter, path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		BadRequest(w, "path is required")
		return "", false
	}
	info, ok := s.sessions.Info(path)
	if !ok {
		WriteGitNetError(w, notOpen(path))
		return "", false
	}
	return info.Path, true
}

// repoFiles validates repository-relative file paths.
func repoFiles(root string, files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, ok := paths.RepoRelative(root, f)
		if !ok {
			return nil, errors.New(errors.ValidationFailed, "file is outside the repository: "+f, nil, nil)
		}
		out = append(out, rel)
	}
	return out, nil
}
