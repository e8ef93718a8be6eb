package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed schemas
var schemasFS embed.FS

const (
	SearchResponseV1 = "SearchResponse/1.0.0"
)

var (
	compileOnce     sync.Once
	compileErr      error
	compiledSchemas map[string]*jsonschema.Schema
)

// compileAll компилирует все встроенные схемы один раз за процесс
func compileAll() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		var paths []string
		// сначала все ресурсы, чтобы работали $ref между схемами
		err := fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".json") {
				return nil
			}
			data, err := schemasFS.ReadFile(path)
			if err != nil {
				return err
			}
			if err := compiler.AddResource(path, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("failed to add schema resource %s: %w", path, err)
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			compileErr = err
			return
		}

		compiled := make(map[string]*jsonschema.Schema, len(paths))
		for _, path := range paths {
			schema, err := compiler.Compile(path)
			if err != nil {
				compileErr = fmt.Errorf("could not compile schema %s: %w", path, err)
				return
			}
			compiled[keyFromPath(path)] = schema
		}
		compiledSchemas = compiled
	})
	return compileErr
}

// keyFromPath: "schemas/events/property-page-fetched/v1.json" -> "PropertyPageFetchedEvent/1.0.0",
// "schemas/payloads/search-response/v1.json" -> "SearchResponse/1.0.0"
func keyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "schemas/"), ".json")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[1], "-") {
		name.WriteString(caser.String(p))
	}
	if parts[0] == "events" {
		name.WriteString("Event")
	}

	version := strings.TrimPrefix(parts[2], "v") + ".0.0"
	return name.String() + "/" + version
}

func validate(key string, body []byte) error {
	if err := compileAll(); err != nil {
		return err
	}
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema '%s' not found", key)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("body is not a valid JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ValidateSearchResponse проверяет тело успешного ответа поиска
func ValidateSearchResponse(body []byte) error {
	return validate(SearchResponseV1, body)
}

// ValidateEvent проверяет исходящее сообщение по типу и версии события
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	return validate(eventType+"/"+eventVersion, body)
}
