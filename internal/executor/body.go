package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/shaiso/Elastix/internal/domain"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

// ndjsonEndpoints — последние сегменты path, которые принимают NDJSON.
var ndjsonEndpoints = map[string]bool{
	"_bulk":    true,
	"_msearch": true,
}

// isBulkPath проверяет, что path указывает на NDJSON-эндпоинт:
// "/_bulk", "/planets/_bulk?refresh=true", "/_msearch".
func isBulkPath(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	return ndjsonEndpoints[segment]
}

// prepareBody готовит тело запроса и его Content-Type.
//
// Для bulk-эндпоинтов JSON-массив перекодируется в NDJSON;
// всё остальное передаётся как есть.
func prepareBody(action domain.ActionConfiguration) ([]byte, string) {
	if !action.HasBody() {
		return nil, ""
	}

	if !isBulkPath(action.Path) {
		return []byte(action.Body), contentTypeJSON
	}

	if ndjson, ok := arrayToNDJSON(action.Body); ok {
		return ndjson, contentTypeNDJSON
	}

	body := action.Body
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return []byte(body), contentTypeNDJSON
}

// arrayToNDJSON превращает JSON-массив в NDJSON: компактная строка на элемент.
// Возвращает false, если body — не JSON-массив (NDJSON или битый JSON):
// такое тело отправляется как есть, ошибку сообщит backend.
func arrayToNDJSON(body string) ([]byte, bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, false
	}

	var buf bytes.Buffer
	for _, item := range items {
		if err := json.Compact(&buf, item); err != nil {
			return nil, false
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), true
}

// isJSONContentType проверяет Content-Type ответа:
// application/json, application/vnd.elasticsearch+json, application/x-ndjson.
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	return strings.HasSuffix(mediaType, "/json") ||
		strings.HasSuffix(mediaType, "+json") ||
		strings.HasSuffix(mediaType, "-ndjson")
}

// decodeResponse разбирает тело ответа.
//
// Пустое тело — null. JSON (по Content-Type или по первому символу) —
// разобранное значение. Остальное (_cat API, plain text) — строка.
func decodeResponse(contentType string, raw []byte) (domain.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return domain.NullValue(), nil
	}

	looksLikeJSON := trimmed[0] == '{' || trimmed[0] == '['
	if !isJSONContentType(contentType) && !looksLikeJSON {
		return domain.StringValue(string(raw)), nil
	}

	v, err := domain.DecodeValue(trimmed)
	if err != nil {
		return domain.NullValue(), fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

// backendMessage строит сообщение об ошибке из ответа backend'а.
//
// Elasticsearch возвращает {"error": {"type": ..., "reason": ...}, "status": N}
// или {"error": "text"}.
func backendMessage(statusCode int, body domain.Value) string {
	prefix := fmt.Sprintf("HTTP %d", statusCode)

	errVal := body.Get("error")
	switch errVal.Kind() {
	case domain.KindString:
		s, _ := errVal.AsString()
		return prefix + ": " + s
	case domain.KindObject:
		errType, _ := errVal.Get("type").AsString()
		reason, _ := errVal.Get("reason").AsString()
		switch {
		case errType != "" && reason != "":
			return prefix + ": " + errType + ": " + reason
		case reason != "":
			return prefix + ": " + reason
		case errType != "":
			return prefix + ": " + errType
		}
	}

	if found, ok := body.Get("found").AsBool(); ok && !found {
		return prefix + ": document not found"
	}
	if result, ok := body.Get("result").AsString(); ok && result != "" {
		return prefix + ": " + result
	}

	return prefix
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
