package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI YAML document of the gaze API.
//
//go:embed openapi.yaml
var OpenAPI []byte
