package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Compile Errors (G001-G009)
	// ============================================

	"G001": {
		Category: CategoryCompile,
		Message:  "Expression syntax error",
		Detail:   "A binding expression could not be parsed. Attribute, property, event and loop bindings must hold valid expressions.",
		DocURL:   "https://gallia.dev/docs/errors/G001",
	},
	"G002": {
		Category: CategoryCompile,
		Message:  "Invalid x-for expression",
		Detail:   "Iteration blocks take the form \"name of expression\", where name is a plain identifier.",
		DocURL:   "https://gallia.dev/docs/errors/G002",
	},
	"G003": {
		Category: CategoryCompile,
		Message:  "Invalid x-key expression",
		Detail:   "The key expression sees only the loop variable and $index.",
		DocURL:   "https://gallia.dev/docs/errors/G003",
	},
	"G004": {
		Category: CategoryCompile,
		Message:  "Invalid event handler",
		Detail:   "Event handlers are statements separated by semicolons. Assignments and calls are allowed.",
		DocURL:   "https://gallia.dev/docs/errors/G004",
	},

	// ============================================
	// Runtime Errors (G010-G019)
	// ============================================

	"G010": {
		Category: CategoryRuntime,
		Message:  "Binding evaluation failed",
		Detail:   "An expression failed while a binding was being set up.",
		DocURL:   "https://gallia.dev/docs/errors/G010",
	},
	"G011": {
		Category: CategoryRuntime,
		Message:  "Scope used after destroy",
		Detail:   "A binding was attached to a scope that had already been destroyed. This usually means a subtree was removed while it was still being bound.",
		DocURL:   "https://gallia.dev/docs/errors/G011",
	},
	"G012": {
		Category: CategoryRuntime,
		Message:  "Reactive update loop",
		Detail:   "Reactions kept writing state that re-ran other reactions beyond the configured depth.",
		DocURL:   "https://gallia.dev/docs/errors/G012",
	},
	"G013": {
		Category: CategoryRuntime,
		Message:  "Iteration source is not a list",
		Detail:   "The expression of an x-for block must evaluate to a list or to nothing.",
		DocURL:   "https://gallia.dev/docs/errors/G013",
	},
	"G014": {
		Category: CategoryRuntime,
		Message:  "Invalid iteration key",
		Detail:   "Keys must be unique within one list and usable as map keys (strings, numbers, booleans).",
		DocURL:   "https://gallia.dev/docs/errors/G014",
	},

	// ============================================
	// Component Errors (G020-G029)
	// ============================================

	"G020": {
		Category: CategoryComponent,
		Message:  "Component load failed",
		Detail:   "The component module could not be loaded from any configured source.",
		DocURL:   "https://gallia.dev/docs/errors/G020",
	},
	"G021": {
		Category: CategoryComponent,
		Message:  "Invalid component model",
		Detail:   "The x-model attribute must hold valid JSON.",
		DocURL:   "https://gallia.dev/docs/errors/G021",
	},
	"G022": {
		Category: CategoryComponent,
		Message:  "Component instantiation failed",
		Detail:   "The component factory returned an error.",
		DocURL:   "https://gallia.dev/docs/errors/G022",
	},
	"G023": {
		Category: CategoryComponent,
		Message:  "Invalid component definition",
		Detail:   "A component definition file could not be parsed, or one of its methods or hooks is not a valid handler.",
		DocURL:   "https://gallia.dev/docs/errors/G023",
	},

	// ============================================
	// Config Errors (G030-G039)
	// ============================================

	"G030": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
		DocURL:   "https://gallia.dev/docs/errors/G030",
	},
	"G031": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
		DocURL:   "https://gallia.dev/docs/errors/G031",
	},

	// ============================================
	// CLI Errors (G040-G049)
	// ============================================

	"G040": {
		Category: CategoryCLI,
		Message:  "Page not found",
		Detail:   "The page file does not exist or cannot be read.",
		DocURL:   "https://gallia.dev/docs/errors/G040",
	},
	"G041": {
		Category: CategoryCLI,
		Message:  "Render failed",
		Detail:   "One or more components on the page failed to mount.",
		DocURL:   "https://gallia.dev/docs/errors/G041",
	},
	"G042": {
		Category: CategoryCLI,
		Message:  "Dev server failed",
		Detail:   "The preview server could not start or stopped unexpectedly.",
		DocURL:   "https://gallia.dev/docs/errors/G042",
	},
	"G043": {
		Category: CategoryCLI,
		Message:  "Project template not found",
		Detail:   "No project template has that name.",
		DocURL:   "https://gallia.dev/docs/errors/G043",
	},
	"G044": {
		Category: CategoryCLI,
		Message:  "Project directory exists",
		Detail:   "The target directory already holds a gallia.yaml.",
		DocURL:   "https://gallia.dev/docs/errors/G044",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
