// Package confloader loads layered configuration with koanf and watches
// configuration files with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (JOBDESK_SECTION__KEY)
//  3. Configuration file (YAML)
//  4. Defaults (LoadMap before Load, or the target struct's zero values)
//
// Environment keys use a double underscore between sections so that keys
// containing underscores survive: JOBDESK_AUTH__SEAL_SECRET maps to
// auth.seal_secret.
package confloader
