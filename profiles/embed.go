// Package profiles embeds the built-in corpus recipes for compile-time
// inclusion. Each YAML file is one profile: bucket weights, source
// descriptors, optional oversampling weights.
//
// Usage:
//
//	plan.LoadFS(profiles.FS)
package profiles

import "embed"

//go:embed *.yaml
var FS embed.FS
