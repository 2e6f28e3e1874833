// Package configs embeds the annotated configuration template and the
// example fixture shipped with searchindex.
//
// The config template is written by `searchindex config init`. Its values
// must match the defaults in internal/config NewConfig.
package configs

import _ "embed"

// ConfigTemplate is the annotated default configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string

// ExampleFixture is a small listings index with four documents.
//
//go:embed listings.example.yaml
var ExampleFixture string
