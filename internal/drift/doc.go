// Package drift reports how environment files differ from each other and
// from their templates.
//
// Diff compares two variable sets key by key. Check compares a local file
// against a template and lists missing, extra and empty variables.
// ResolveTemplate finds the template to check against:
//
//  1. the environment's own template from config.toml, under .vaultic/
//  2. .vaultic/<env>.env.template
//  3. the global [vaultic] template, under the project root
//  4. the first of .env.template, .env.example, .env.sample, env.template
//     in the project root
//
// Values are only compared, never logged.
package drift
