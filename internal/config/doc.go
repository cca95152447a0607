// Package config loads prospector's configuration.
//
// # Resolution Order
//
//  1. Built-in defaults (Default)
//  2. The TOML file: the path given with -config, or
//     ~/.config/prospector/config.toml; a missing file is not an error
//  3. A .env file in the working directory, loaded with godotenv; variables
//     already present in the environment are left alone
//  4. PROSPECTOR_TOKEN, PROSPECTOR_SESSION and PROSPECTOR_USER
//
// Command-line flags are applied by the caller after Load returns.
//
// # TOML Format
//
//	api_url = "https://api.regolith.rocks/graphql"
//	session_id = "..."
//	user_id = "..."
//	delta_interval = "5s"
//	full_interval = "2m"
//	redis_url = ""       # optional cache persistence
//	log_path = "~/.local/share/prospector/prospector.log"
//	metrics_addr = ""    # optional prometheus listener, e.g. ":9464"
//
// String values are trimmed; empty values keep their defaults. Intervals use
// time.ParseDuration syntax. Paths starting with ~ are expanded against the
// user's home directory and made absolute.
//
// The API token is never read from the TOML file so the file can be shared.
//
// # Validation
//
// Validate is separate from Load so flags can fill gaps first. It requires a
// session id, a user id, and positive intervals where the full interval is at
// least the delta interval.
//
// # Errors
//
// Invalid TOML and malformed intervals return errors prefixed with
// "parse config". Missing files fall back to defaults.
package config
