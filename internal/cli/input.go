package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/roach88/trustlog/internal/op"
)

// readInput reads a file argument, or stdin when the argument is "-".
// It returns the name used in error positions.
func readInput(arg string, stdin io.Reader) (string, []byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		return "stdin", data, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", nil, err
	}
	return arg, data, nil
}

// assignIDs returns raw as a JSON array in which every object without an
// id has been given one from gen. A single object is wrapped in an array.
func assignIDs(raw []byte, gen op.IDGenerator) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no operations in input")
	}

	var docs []map[string]json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("parse operations: %w", err)
		}
	} else {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("parse operation: %w", err)
		}
		docs = []map[string]json.RawMessage{doc}
	}

	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("operation[%d]: not an object", i)
		}
		if id, ok := doc["id"]; ok && !bytes.Equal(bytes.TrimSpace(id), []byte(`""`)) {
			continue
		}
		id, err := json.Marshal(gen.Generate())
		if err != nil {
			return nil, err
		}
		doc["id"] = id
	}
	return json.Marshal(docs)
}
