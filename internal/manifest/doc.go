// Package manifest turns repository manifests into reconciliation input.
//
// A manifest groups repositories into trees, each rooted at a directory. Manifests are read from
// YAML or TOML, validated field by field, and expanded into reconcile.RepositoryConfig values.
// Provider blocks import every repository an owner publishes. The package also produces manifests
// from repositories already on disk and encodes them back to either format.
package manifest
