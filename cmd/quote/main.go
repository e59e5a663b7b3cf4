// README: Offline quote CLI; prices a YAML quote file (request + context) and prints the JSON result.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"vtc/internal/modules/pricing"
)

// quoteFile mirrors the JSON body of POST /api/pricing/calculate.
type quoteFile struct {
	Request pricing.Request `json:"request"`
	Context pricing.Context `json:"context"`
}

func main() {
	path := flag.String("file", "", "quote file (YAML or JSON); - reads stdin")
	flag.Parse()

	if err := run(*path, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "quote:", err)
		os.Exit(1)
	}
}

func run(path string, stdin io.Reader, stdout io.Writer) error {
	if path == "" {
		return errors.New("-file is required")
	}
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	q, err := parseQuoteFile(raw)
	if err != nil {
		return err
	}
	res, err := pricing.CalculatePrice(q.Request, q.Context)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// parseQuoteFile decodes YAML (a superset of JSON) and re-encodes it as JSON so the
// domain types only carry json tags.
func parseQuoteFile(raw []byte) (quoteFile, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return quoteFile{}, fmt.Errorf("parse quote file: %w", err)
	}
	b, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return quoteFile{}, fmt.Errorf("convert quote file: %w", err)
	}
	var q quoteFile
	if err := json.Unmarshal(b, &q); err != nil {
		return quoteFile{}, fmt.Errorf("decode quote file: %w", err)
	}
	return q, nil
}

// stringKeys rewrites non-string mapping keys (e.g. difficulty scores) as strings, which
// encoding/json accepts for integer-keyed maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	default:
		return v
	}
}
