package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
)

// Fixture is an index definition and its documents, read from YAML or JSON.
type Fixture struct {
	Index     schema.IndexDefinition `json:"index" yaml:"index"`
	Documents []schema.Document      `json:"documents" yaml:"documents"`
}

// LoadFixture reads path. Files ending in .json are decoded as JSON, all
// others as YAML.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.ValidationError(fmt.Sprintf("failed to read fixture %s", path), err)
	}

	var fx Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &fx)
	default:
		err = yaml.Unmarshal(data, &fx)
	}
	if err != nil {
		return nil, serrors.ValidationError(fmt.Sprintf("failed to parse fixture %s", path), err)
	}

	if fx.Index.Name == "" {
		return nil, serrors.New(serrors.ErrCodeInvalidSchema,
			fmt.Sprintf("fixture %s has no index name", path), nil).
			WithSuggestion("set index.name in the fixture")
	}
	return &fx, nil
}

// Load creates the fixture index in svc and writes every document.
func (fx *Fixture) Load(ctx context.Context, svc *search.Service) (schema.IndexDefinition, error) {
	def, err := svc.CreateIndexIfNotExists(ctx, fx.Index)
	if err != nil {
		return schema.IndexDefinition{}, err
	}
	for i, doc := range fx.Documents {
		if err := svc.IndexDocument(ctx, def.Name, doc); err != nil {
			return schema.IndexDefinition{}, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return def, nil
}
