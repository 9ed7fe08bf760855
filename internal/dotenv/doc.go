// Package dotenv holds ordered .env variable sets.
//
// Parse and Serialize round-trip .env content literally while keeping keys
// in file order, which matters both for readable diffs and for inheritance
// merges where an overridden key stays where it was first defined. Values
// are never interpolated. LoadTemplate reads template key sets through
// godotenv. Encode renders a set as dotenv, JSON or YAML.
package dotenv
