package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrTrailingData — после JSON-значения во входных данных остались байты.
var ErrTrailingData = errors.New("unexpected data after top-level JSON value")

// Kind — тип JSON-значения.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String возвращает имя типа.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value — разобранное JSON-значение ответа backend'а.
//
// Вместо map[string]any используется tagged union: тип значения
// известен из Kind(), доступ к полям выполняется через методы.
// Нулевое значение Value — это JSON null.
//
// Особенности:
//   - порядок ключей объекта сохраняется таким, как он пришёл по сети
//   - числа хранятся в текстовом виде (json.Number), 64-битные id не теряют точность
type Value struct {
	kind   Kind
	b      bool
	s      string // текст строки или числа
	items  []Value
	keys   []string
	fields map[string]Value
}

// Member — пара ключ/значение для ObjectValue.
type Member struct {
	Key   string
	Value Value
}

// NullValue возвращает JSON null.
func NullValue() Value { return Value{} }

// BoolValue возвращает JSON boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue возвращает JSON number.
func NumberValue(n json.Number) Value { return Value{kind: KindNumber, s: n.String()} }

// IntValue возвращает JSON number из int64.
func IntValue(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// StringValue возвращает JSON string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ArrayValue возвращает JSON array.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

// ObjectValue возвращает JSON object с ключами в переданном порядке.
// При повторе ключа побеждает последнее значение, позиция остаётся первой.
func ObjectValue(members ...Member) Value {
	v := Value{kind: KindObject, fields: make(map[string]Value, len(members))}
	for _, m := range members {
		v.set(m.Key, m.Value)
	}
	return v
}

func (v *Value) set(key string, val Value) {
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

// Kind возвращает тип значения.
func (v Value) Kind() Kind { return v.kind }

// IsNull проверяет, является ли значение null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool возвращает boolean, если значение — boolean.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString возвращает строку, если значение — string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber возвращает число в текстовом виде.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsInt64 возвращает число как int64.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsFloat64 возвращает число как float64.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Len возвращает длину массива или количество ключей объекта.
// Для остальных типов — 0.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.keys)
	default:
		return 0
	}
}

// Items возвращает элементы массива (nil для не-массива).
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Index возвращает i-й элемент массива или null.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Keys возвращает ключи объекта в исходном порядке.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return v.keys
}

// Lookup возвращает поле объекта и признак его наличия.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	field, ok := v.fields[key]
	return field, ok
}

// Get возвращает поле объекта или null, если поля нет.
func (v Value) Get(key string) Value {
	field, _ := v.Lookup(key)
	return field
}

// Path проходит по вложенным объектам: v.Path("_source", "name").
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Interface конвертирует значение в обычные Go-типы
// (map[string]any, []any, json.Number, string, bool, nil).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON реализует json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("encode value: unknown kind %s", v.kind)
	}
	return nil
}

// UnmarshalJSON реализует json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeValue(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// DecodeValue разбирает ровно одно JSON-значение.
// Пустой вход и лишние данные после значения — ошибка.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeNext(dec)
	if err != nil {
		return Value{}, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, ErrTrailingData
		}
		return Value{}, err
	}
	return v, nil
}

// decodeNext читает следующее значение из потока токенов.
func decodeNext(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeArray(dec *json.Decoder) (Value, error) {
	items := []Value{}
	for dec.More() {
		item, err := decodeNext(dec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	// закрывающая ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return ArrayValue(items...), nil
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := Value{kind: KindObject, fields: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("unexpected object key %v", tok)
		}
		field, err := decodeNext(dec)
		if err != nil {
			return Value{}, err
		}
		obj.set(key, field)
	}
	// закрывающая '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return obj, nil
}
