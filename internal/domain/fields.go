package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Field: пара ключ/значение из детальной записи бэкенда.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields: упорядоченный дамп записи. Схема у каждой сущности своя,
// поэтому храним порядок ключей как прислал бэкенд, а значения: строками.
type Fields []Field

// Get возвращает значение по ключу.
func (f Fields) Get(key string) (string, bool) {
	for _, kv := range f {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ErrEmptyBody: бэкенд вернул пустое тело.
var ErrEmptyBody = errors.New("empty body")

// DecodeFields разбирает JSON верхнего уровня в упорядоченные пары.
// Объект даёт свои ключи, массив даёт индексы, скаляр становится полем "value".
// null даёт nil: модалка покажет "нет данных".
func DecodeFields(data []byte) (Fields, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("decode fields: unexpected delimiter %q", t)
	case nil:
		return nil, nil
	default:
		return Fields{{Key: "value", Value: scalarString(t)}}, nil
	}
}

func decodeObject(dec *json.Decoder) (Fields, error) {
	out := make(Fields, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode fields: non-string key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode fields: value of %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: RenderValue(raw)})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

func decodeArray(dec *json.Decoder) (Fields, error) {
	out := make(Fields, 0)
	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode fields: element %d: %w", i, err)
		}
		out = append(out, Field{Key: strconv.Itoa(i), Value: RenderValue(raw)})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

// RenderValue превращает JSON-значение в строку для отображения.
// Строки без кавычек, вложенные структуры: компактным JSON.
func RenderValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}

func scalarString(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
