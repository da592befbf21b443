package testing

import (
	"bytes"
	"encoding/json"
)

// JSONUnmarshalBuffer unmarshal provided buffer. To be used for tests only
func JSONUnmarshalBuffer(buffer *bytes.Buffer, v interface{}) {
	if err := json.Unmarshal(buffer.Bytes(), v); err != nil {
		panic(err)
	}
}

// JSONUnmarshalLines unmarshal each non empty line of the buffer into a map
func JSONUnmarshalLines(buffer *bytes.Buffer) []map[string]interface{} {
	var result []map[string]interface{}
	for _, line := range bytes.Split(buffer.Bytes(), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		item := map[string]interface{}{}
		if err := json.Unmarshal(line, &item); err != nil {
			panic(err)
		}
		result = append(result, item)
	}
	return result
}
