package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
)

const jsonFixture = `{
  "index": {
    "name": "notes",
    "fields": [
      {"name": "id", "type": "Edm.String", "key": true},
      {"name": "title", "type": "Edm.String", "searchable": true},
      {"name": "stars", "type": "Edm.Int32", "filterable": true}
    ]
  },
  "documents": [
    {"id": "a", "title": "Grocery list", "stars": 2},
    {"id": "b", "title": "Meeting notes", "stars": 5}
  ]
}`

func TestLoadFixture_Formats(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantIndex string
		wantDocs  int
	}{
		{"yaml", "listings.yaml", "", "listings", 4},
		{"json", "notes.json", jsonFixture, "notes", 2},
		{"uppercase extension", "NOTES.JSON", jsonFixture, "notes", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := exampleFixture(t)
			if tt.content != "" {
				path = writeFile(t, t.TempDir(), tt.file, tt.content)
			}

			fx, err := LoadFixture(path)

			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, fx.Index.Name)
			assert.Len(t, fx.Documents, tt.wantDocs)
		})
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing file", dir + "/missing.yaml", serrors.ErrCodeInvalidInput},
		{"bad yaml", writeFile(t, dir, "bad.yaml", "index: [unclosed"), serrors.ErrCodeInvalidInput},
		{"bad json", writeFile(t, dir, "bad.json", "{"), serrors.ErrCodeInvalidInput},
		{"no index name", writeFile(t, dir, "anon.yaml", "index:\n  fields: []\n"), serrors.ErrCodeInvalidSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixture(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, serrors.GetCode(err))
		})
	}
}

func TestFixture_LoadIntoService(t *testing.T) {
	// Given: a running service and the example fixture
	ctx := context.Background()
	svc, err := search.NewService()
	require.NoError(t, err)
	require.NoError(t, svc.Startup(ctx))
	fx, err := LoadFixture(exampleFixture(t))
	require.NoError(t, err)

	// When: loading the fixture
	def, err := fx.Load(ctx, svc)

	// Then: the index exists with every document
	require.NoError(t, err)
	assert.Equal(t, "listings", def.Name)
	n, err := svc.DocumentCount("listings")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestFixture_LoadReportsBadDocument(t *testing.T) {
	ctx := context.Background()
	svc, err := search.NewService()
	require.NoError(t, err)
	require.NoError(t, svc.Startup(ctx))

	fx := &Fixture{
		Index: schema.IndexDefinition{Name: "n", Fields: []schema.SearchField{
			{Name: "id", Type: schema.TypeString, Key: true},
			{Name: "stars", Type: schema.TypeInt32},
		}},
		Documents: []schema.Document{{"id": "1", "stars": "many"}},
	}

	_, err = fx.Load(ctx, svc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document 0")
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeTypeMismatch))
}
