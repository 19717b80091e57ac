// Package output renders command results as table, JSON or YAML.
//
// Values that know how to lay themselves out implement Tabular; anything
// else is rendered from its exported fields, named by their json tags.
package output
