// Package errors provides structured, actionable error messages for Gallia.
//
// Errors carry a code, a category, a short message and, where available,
// the offending source text with a caret under the failing position, a
// detail paragraph and a suggestion.
//
// # Error Categories
//
// Errors are organized into categories:
//   - compile: malformed directives and expressions found while walking a template
//   - runtime: binding evaluation and scope lifecycle failures
//   - component: component loading and instantiation failures
//   - config: configuration file errors
//   - cli: command line errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "G001") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("G002").
//	    WithSource("item in items", 5).
//	    WithSuggestion(`Write x-for="item of items"`)
//
//	fmt.Print(err.Format(false))
//	// Prints, among the detail lines:
//	// error: G002 Invalid x-for expression
//	//
//	//     item in items
//	//          ^
//	//
//	//   Hint: Write x-for="item of items"
//	//   Learn more: https://gallia.dev/docs/errors/G002
//
// Aggregated failures, such as the roots of a page that failed to mount,
// are taken apart with Split and printed with FormatAll.
package errors
