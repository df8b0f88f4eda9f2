// Package source loads spend-policy rule sets from YAML files and keeps
// them fresh via filesystem watching.
//
// # File Format
//
// A rule file holds a list of rules under a top-level "rules" key:
//
//	rules:
//	  - id: small-auto
//	    name: Auto-approve small purchases
//	    priority: 10
//	    active: true
//	    conditions:
//	      - type: amount_less_than
//	        value: 50
//	    action:
//	      type: auto_approve
//
// A FileSource path may be a single file or a directory; directories are
// walked recursively and every .yaml/.yml file is loaded. Invalid files
// are logged and skipped so one bad file cannot take down the whole rule
// set.
//
// # Custom Predicates
//
// Custom conditions name a predicate registered in a Registry; the
// loader resolves the name to the function at load time. A custom
// condition naming an unregistered predicate fails validation, which is
// preferable to a rule that silently never matches.
//
// # Hot Reload
//
// Watcher wraps fsnotify with debouncing so editor save storms trigger a
// single reload. Reload failures keep the previous rule set in place.
package source
