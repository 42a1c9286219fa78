// Package configs manages user-level shrine preferences: the default shrine
// folder and the agent session TTL. Settings are plain TOML under the user
// config directory; secrets never live here.
package configs
