// Package contracts validates inbound payloads against their JSON schemas
// before they are decoded into models.
package contracts

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

//go:embed schemas
var schemasFS embed.FS

const candidateSchemaPath = "schemas/listing-candidate/v1.json"

// ErrInvalidPayload wraps every decoding or schema failure.
var ErrInvalidPayload = errors.New("invalid payload")

var (
	compileOnce     sync.Once
	candidateSchema *jsonschema.Schema
	compileErr      error
)

func loadCandidateSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		f, err := schemasFS.Open(candidateSchemaPath)
		if err != nil {
			compileErr = fmt.Errorf("failed to open schema %s: %w", candidateSchemaPath, err)
			return
		}
		defer f.Close()

		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(candidateSchemaPath, f); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource %s: %w", candidateSchemaPath, err)
			return
		}
		candidateSchema, compileErr = compiler.Compile(candidateSchemaPath)
	})
	return candidateSchema, compileErr
}

// ValidateCandidate checks a raw candidate body against the listing-candidate schema.
func ValidateCandidate(body []byte) error {
	schema, err := loadCandidateSchema()
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: body is not valid JSON: %v", ErrInvalidPayload, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// DecodeCandidate validates body and decodes it into a ListingCandidate.
func DecodeCandidate(body []byte) (models.ListingCandidate, error) {
	var c models.ListingCandidate
	if err := ValidateCandidate(body); err != nil {
		return c, err
	}
	if err := json.Unmarshal(body, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return c, nil
}
