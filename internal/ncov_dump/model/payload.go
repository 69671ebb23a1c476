package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Payload 上游接口返回的原始 JSON。
// 数字保留为 json.Number，比较时 1 与 1.0 视为不同。
type Payload struct {
	Data any
}

// DecodePayload 解析一段 JSON，要求整段只有一个值
func DecodePayload(r io.Reader) (*Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return &Payload{Data: v}, nil
}

// Encode 以 4 空格缩进输出，不转义非 ASCII 与 HTML 字符
func (p *Payload) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p.Data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
