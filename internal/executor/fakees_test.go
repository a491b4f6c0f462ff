package executor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Elastix/internal/domain"
)

// fakeES — минимальный in-memory Elasticsearch для тестов executor'а.
//
// Поддерживает: GET /, HEAD /{index}, PUT/POST/GET/DELETE /{index}/{type}/{id},
// GET|POST [/{index}]/_mget, POST [/{index}]/_bulk, GET /_cat/indices.
type fakeES struct {
	mu       sync.Mutex
	docs     map[string]map[string]json.RawMessage
	versions map[string]int
	requests []recordedRequest
}

// recordedRequest — запрос, полученный fakeES.
type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

// newFakeES запускает fakeES и возвращает конфигурацию datasource для него.
func newFakeES(t *testing.T) (*fakeES, domain.DatasourceConfiguration) {
	t.Helper()

	es := &fakeES{
		docs:     make(map[string]map[string]json.RawMessage),
		versions: make(map[string]int),
	}
	server := httptest.NewServer(es)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())

	return es, domain.DatasourceConfiguration{
		Endpoints: []domain.Endpoint{{Host: u.Hostname(), Port: port}},
	}
}

// seed кладёт документ напрямую, минуя HTTP.
func (es *fakeES) seed(index, id, source string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.putLocked(index, id, json.RawMessage(source))
}

// lastRequest возвращает последний полученный запрос.
func (es *fakeES) lastRequest() recordedRequest {
	es.mu.Lock()
	defer es.mu.Unlock()
	if len(es.requests) == 0 {
		return recordedRequest{}
	}
	return es.requests[len(es.requests)-1]
}

// requestCount возвращает количество полученных запросов.
func (es *fakeES) requestCount() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.requests)
}

func (es *fakeES) putLocked(index, id string, source json.RawMessage) (created bool, version int) {
	if es.docs[index] == nil {
		es.docs[index] = make(map[string]json.RawMessage)
	}
	_, exists := es.docs[index][id]
	es.docs[index][id] = source
	es.versions[index+"/"+id]++
	return !exists, es.versions[index+"/"+id]
}

func (es *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	es.mu.Lock()
	defer es.mu.Unlock()

	es.requests = append(es.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.RequestURI(),
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})

	path := strings.Trim(r.URL.Path, "/")
	var segments []string
	if path != "" {
		segments = strings.Split(path, "/")
	}

	switch {
	case len(segments) == 0:
		writeJSON(w, http.StatusOK, map[string]any{"tagline": "You Know, for Search"})
	case path == "_cat/indices":
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		for index := range es.docs {
			fmt.Fprintf(w, "green open %s\n", index)
		}
	case segments[len(segments)-1] == "_bulk":
		es.handleBulk(w, r, defaultIndex(segments), body)
	case segments[len(segments)-1] == "_mget":
		es.handleMget(w, defaultIndex(segments), body)
	case len(segments) == 1 && r.Method == http.MethodHead:
		if _, ok := es.docs[segments[0]]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(segments) == 3:
		es.handleDoc(w, r, segments[0], segments[2], body)
	default:
		writeError(w, http.StatusBadRequest, "illegal_argument_exception", "unsupported path ["+r.URL.Path+"]")
	}
}

func (es *fakeES) handleDoc(w http.ResponseWriter, r *http.Request, index, id string, body []byte) {
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var source map[string]any
		if err := json.Unmarshal(body, &source); err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception", "failed to parse")
			return
		}
		created, version := es.putLocked(index, id, json.RawMessage(body))
		result, status := "updated", http.StatusOK
		if created {
			result, status = "created", http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"_index": index, "_id": id, "_version": version, "result": result})

	case http.MethodGet:
		source, ok := es.docs[index][id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "found": true, "_source": source})

	case http.MethodDelete:
		if _, ok := es.docs[index][id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "result": "not_found"})
			return
		}
		delete(es.docs[index], id)
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "result": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	}
}

func (es *fakeES) handleMget(w http.ResponseWriter, index string, body []byte) {
	var req struct {
		Docs []struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"docs"`
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "parse_exception", "request body is required")
		return
	}

	docs := make([]map[string]any, 0, len(req.Docs)+len(req.IDs))
	lookup := func(idx, id string) map[string]any {
		if source, ok := es.docs[idx][id]; ok {
			return map[string]any{"_index": idx, "_id": id, "found": true, "_source": source}
		}
		return map[string]any{"_index": idx, "_id": id, "found": false}
	}
	for _, d := range req.Docs {
		idx := d.Index
		if idx == "" {
			idx = index
		}
		docs = append(docs, lookup(idx, d.ID))
	}
	for _, id := range req.IDs {
		docs = append(docs, lookup(index, id))
	}

	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

func (es *fakeES) handleBulk(w http.ResponseWriter, r *http.Request, index string, body []byte) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-ndjson") && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusNotAcceptable, "illegal_argument_exception", "Content-Type header ["+ct+"] is not supported")
		return
	}
	if len(body) == 0 || body[len(body)-1] != '\n' {
		writeError(w, http.StatusBadRequest, "illegal_argument_exception", "The bulk request must be terminated by a newline [\\n]")
		return
	}

	var lines [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
	}

	items := []map[string]any{}
	hasErrors := false

	for i := 0; i < len(lines); i++ {
		var action map[string]struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		}
		if err := json.Unmarshal(lines[i], &action); err != nil || len(action) != 1 {
			writeError(w, http.StatusBadRequest, "illegal_argument_exception",
				fmt.Sprintf("Malformed action/metadata line [%d], expected START_OBJECT", i+1))
			return
		}

		for op, meta := range action {
			idx := meta.Index
			if idx == "" {
				idx = index
			}
			item := map[string]any{"_index": idx, "_id": meta.ID}

			var source json.RawMessage
			if op != "delete" {
				if i+1 >= len(lines) {
					writeError(w, http.StatusBadRequest, "action_request_validation_exception", "source is missing")
					return
				}
				i++
				source = lines[i]
			}

			_, exists := es.docs[idx][meta.ID]
			switch op {
			case "index":
				created, _ := es.putLocked(idx, meta.ID, source)
				item["status"], item["result"] = 200, "updated"
				if created {
					item["status"], item["result"] = 201, "created"
				}
			case "create":
				if exists {
					item["status"] = 409
					item["error"] = map[string]any{"type": "version_conflict_engine_exception", "reason": "document already exists"}
					hasErrors = true
				} else {
					es.putLocked(idx, meta.ID, source)
					item["status"], item["result"] = 201, "created"
				}
			case "update":
				if !exists {
					item["status"] = 404
					item["error"] = map[string]any{"type": "document_missing_exception", "reason": "document missing"}
					hasErrors = true
				} else {
					var upd struct {
						Doc json.RawMessage `json:"doc"`
					}
					json.Unmarshal(source, &upd)
					es.putLocked(idx, meta.ID, upd.Doc)
					item["status"], item["result"] = 200, "updated"
				}
			case "delete":
				if exists {
					delete(es.docs[idx], meta.ID)
					item["status"], item["result"] = 200, "deleted"
				} else {
					item["status"], item["result"] = 404, "not_found"
				}
			default:
				writeError(w, http.StatusBadRequest, "illegal_argument_exception", "Unknown action ["+op+"]")
				return
			}

			items = append(items, map[string]any{op: item})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"took": 3, "errors": hasErrors, "items": items})
}

// defaultIndex возвращает индекс из path вида /{index}/_bulk.
func defaultIndex(segments []string) string {
	if len(segments) >= 2 {
		return segments[0]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, reason string) {
	writeJSON(w, status, map[string]any{
		"error":  map[string]any{"type": errType, "reason": reason},
		"status": status,
	})
}
