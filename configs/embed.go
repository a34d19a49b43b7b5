// Package configs provides embedded configuration templates for memoryd.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship inside the binary for every distribution channel (source build,
// release archive, package manager).
//
// Configuration precedence (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config.Default())
//  2. Config file (~/.memoryd/config.yaml, or --config path)
//  3. Environment variables (MEMORYD_*)
//  4. CLI flags
package configs

import _ "embed"

// ConfigTemplate is the embedded text of memoryd.example.yaml. It documents
// every recognized option.
//
//go:embed memoryd.example.yaml
var ConfigTemplate string
