package project

import (
	"os"
	"path/filepath"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangDart       Language = "dart"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
	LangUnknown    Language = "unknown"
)

// manifests in priority order
var languageManifests = []struct {
	path string
	lang Language
}{
	{"go.mod", LangGo},
	{"package.json", LangTypeScript},
	{"Cargo.toml", LangRust},
	{"pyproject.toml", LangPython},
	{"requirements.txt", LangPython},
	{"Pipfile", LangPython},
	{"setup.py", LangPython},
	{"pom.xml", LangJava},
	{"build.gradle", LangJava},
	{"build.gradle.kts", LangKotlin},
	{"pubspec.yaml", LangDart},
	{"composer.json", LangPHP},
	{"Gemfile", LangRuby},
}

// DetectLanguage guesses the primary language from the manifest at the root.
// It returns the language, the manifest name and whether one was found.
func (c *Context) DetectLanguage() (Language, string, bool) {
	for _, m := range languageManifests {
		if _, err := os.Stat(filepath.Join(c.Root, m.path)); err == nil {
			lang := m.lang
			if m.path == "package.json" {
				lang = c.detectJSorTS()
			}
			return lang, m.path, true
		}
	}
	return LangUnknown, "", false
}

func (c *Context) detectJSorTS() Language {
	if _, err := os.Stat(filepath.Join(c.Root, "tsconfig.json")); err == nil {
		return LangTypeScript
	}
	for _, dir := range []string{c.Root, filepath.Join(c.Root, "src")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".ts" {
				return LangTypeScript
			}
		}
	}
	return LangJavaScript
}
