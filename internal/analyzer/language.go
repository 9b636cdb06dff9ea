package analyzer

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".jsx":
		return LangJavaScript, true // JSX uses the JS grammar
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// functionNodeTypes returns the AST node types that represent callable units.
func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "method_definition", "generator_function_declaration"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

// classNodeTypes returns the AST node types for classes/types/interfaces.
func classNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case LangKotlin:
		return []string{"class_declaration", "interface_declaration", "object_declaration"}
	default:
		return nil
	}
}

// decisionNodeTypes returns the node types that contribute to cyclomatic
// complexity for a language.
func decisionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{
			"if_statement",
			"for_statement",
			"expression_case",
			"type_case",
			"communication_case",
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{
			"if_statement",
			"for_statement",
			"for_in_statement",
			"while_statement",
			"do_statement",
			"switch_case",
			"catch_clause",
			"ternary_expression",
		}
	case LangPython:
		return []string{
			"if_statement",
			"elif_clause",
			"for_statement",
			"while_statement",
			"except_clause",
			"conditional_expression",
		}
	case LangRust:
		return []string{
			"if_expression",
			"match_arm",
			"for_expression",
			"while_expression",
			"loop_expression",
		}
	case LangJava:
		return []string{
			"if_statement",
			"for_statement",
			"enhanced_for_statement",
			"while_statement",
			"do_statement",
			"switch_label",
			"catch_clause",
			"ternary_expression",
		}
	case LangKotlin:
		return []string{
			"if_expression",
			"when_entry",
			"for_statement",
			"while_statement",
			"catch_block",
		}
	default:
		return nil
	}
}

// importNodeTypes returns the node types that declare imports.
func importNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_spec"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"import_statement"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangRust:
		return []string{"use_declaration"}
	case LangJava:
		return []string{"import_declaration"}
	case LangKotlin:
		return []string{"import_header"}
	default:
		return nil
	}
}
