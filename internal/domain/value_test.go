package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeValue_Object(t *testing.T) {
	v, err := DecodeValue([]byte(`{"_id":"id1","found":true,"_version":3,"_source":{"name":"Mercury"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.Kind() != KindObject {
		t.Fatalf("expected object, got %s", v.Kind())
	}

	// Порядок ключей сохраняется
	keys := v.Keys()
	expected := []string{"_id", "found", "_version", "_source"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, k := range expected {
		if keys[i] != k {
			t.Errorf("key %d: expected %s, got %s", i, k, keys[i])
		}
	}

	if name, _ := v.Path("_source", "name").AsString(); name != "Mercury" {
		t.Errorf("expected Mercury, got %q", name)
	}
	if found, ok := v.Get("found").AsBool(); !ok || !found {
		t.Errorf("expected found=true")
	}
	if version, ok := v.Get("_version").AsInt64(); !ok || version != 3 {
		t.Errorf("expected _version=3, got %d", version)
	}
}

func TestDecodeValue_Array(t *testing.T) {
	v, err := DecodeValue([]byte(`[1, "two", null, false, [], {}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.Len() != 6 {
		t.Fatalf("expected 6 items, got %d", v.Len())
	}

	kinds := []Kind{KindNumber, KindString, KindNull, KindBool, KindArray, KindObject}
	for i, k := range kinds {
		if v.Index(i).Kind() != k {
			t.Errorf("item %d: expected %s, got %s", i, k, v.Index(i).Kind())
		}
	}

	// Выход за границы — null
	if !v.Index(10).IsNull() {
		t.Error("out of range index should be null")
	}
}

func TestDecodeValue_LargeNumberPrecision(t *testing.T) {
	v, err := DecodeValue([]byte(`{"seq":9007199254740993}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, ok := v.Get("seq").AsInt64()
	if !ok || n != 9007199254740993 {
		t.Errorf("expected exact int64, got %d", n)
	}
}

func TestDecodeValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated", `{"a":`},
		{"bad token", `{"a": tru}`},
		{"unclosed array", `[1, 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeValue([]byte(tt.input)); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestDecodeValue_TrailingData(t *testing.T) {
	_, err := DecodeValue([]byte("{\"a\":1}\n{\"b\":2}\n"))
	if !errors.Is(err, ErrTrailingData) {
		t.Errorf("expected ErrTrailingData, got %v", err)
	}
}

func TestDecodeValue_DuplicateKeys(t *testing.T) {
	v, err := DecodeValue([]byte(`{"a":1,"b":2,"a":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", v.Len())
	}
	if n, _ := v.Get("a").AsInt64(); n != 3 {
		t.Errorf("last value should win, got %d", n)
	}
	if v.Keys()[0] != "a" {
		t.Errorf("first position should be kept, got %v", v.Keys())
	}
}

func TestValue_MarshalJSON_PreservesOrder(t *testing.T) {
	input := `{"took":5,"errors":false,"items":[{"index":{"_id":"1","status":201}}],"note":"a\"b"}`

	v, err := DecodeValue([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("expected %s, got %s", input, out)
	}
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() {
		t.Error("zero value should be null")
	}

	out, err := json.Marshal(struct {
		Body Value `json:"body"`
	}{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"body":null}` {
		t.Errorf("unexpected json: %s", out)
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var holder struct {
		Body Value `json:"body"`
	}
	if err := json.Unmarshal([]byte(`{"body":{"docs":[{"_id":"id1"},{"_id":"id2"}]}}`), &holder); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	docs := holder.Body.Get("docs")
	if docs.Len() != 2 {
		t.Fatalf("expected 2 docs, got %d", docs.Len())
	}
	if id, _ := docs.Index(1).Get("_id").AsString(); id != "id2" {
		t.Errorf("expected id2, got %s", id)
	}
}

func TestValue_Interface(t *testing.T) {
	v := ObjectValue(
		Member{Key: "name", Value: StringValue("Venus")},
		Member{Key: "tags", Value: ArrayValue(StringValue("planet"))},
		Member{Key: "moons", Value: IntValue(0)},
		Member{Key: "ring", Value: NullValue()},
	)

	m, ok := v.Interface().(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v.Interface())
	}
	if m["name"] != "Venus" {
		t.Errorf("expected name=Venus, got %v", m["name"])
	}
	if tags, ok := m["tags"].([]any); !ok || len(tags) != 1 {
		t.Errorf("expected tags slice, got %v", m["tags"])
	}
	if m["moons"] != json.Number("0") {
		t.Errorf("expected moons=0, got %v", m["moons"])
	}
	if m["ring"] != nil {
		t.Errorf("expected nil ring, got %v", m["ring"])
	}
}

func TestValue_AccessorsOnWrongKind(t *testing.T) {
	v := StringValue("text")

	if _, ok := v.AsBool(); ok {
		t.Error("AsBool on string should fail")
	}
	if _, ok := v.AsInt64(); ok {
		t.Error("AsInt64 on string should fail")
	}
	if v.Len() != 0 {
		t.Error("Len on string should be 0")
	}
	if !v.Get("x").IsNull() {
		t.Error("Get on string should be null")
	}
	if v.Items() != nil || v.Keys() != nil {
		t.Error("Items/Keys on string should be nil")
	}
}
