package schema

import _ "embed"

// ManifestV1Schema contains the JSON schema for process manifests.
//
//go:embed procmux.v1.json
var ManifestV1Schema []byte
