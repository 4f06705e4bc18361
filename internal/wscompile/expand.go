package wscompile

import (
	"strings"
	"unicode"
)

// codeSynonyms maps natural-language terms to the code vocabulary a caller
// might actually be searching for, e.g. "function" also matching "func",
// "method", "fn". It bridges the vocabulary gap between how a user phrases
// an intent and how the underlying spans are named.
var codeSynonyms = map[string][]string{
	"function":  {"func", "method", "fn", "def"},
	"method":    {"func", "fn", "def", "function"},
	"class":     {"type", "struct", "interface"},
	"type":      {"class", "struct", "interface"},
	"struct":    {"class", "type", "structure"},
	"interface": {"protocol", "trait", "contract"},
	"error":     {"err", "exception", "fail", "failure"},
	"err":       {"error"},
	"exception": {"error", "err", "panic"},
	"handler":   {"handle", "callback"},
	"retry":     {"attempt", "backoff"},
	"backoff":   {"retry", "delay", "exponential"},
	"request":   {"req", "http"},
	"response":  {"resp", "reply"},
	"api":       {"endpoint", "handler", "route"},
	"endpoint":  {"handler", "route", "api", "path"},
	"server":    {"serve", "listener", "daemon"},
	"client":    {"conn", "connection"},
	"context":   {"ctx"},
	"ctx":       {"context"},
	"config":    {"cfg", "configuration", "settings", "options"},
	"cfg":       {"config", "configuration"},
	"options":   {"opts", "config", "settings"},
	"database":  {"db", "store", "storage"},
	"db":        {"database", "store"},
	"store":     {"storage", "database", "repository"},
	"repository": {"repo", "store"},
	"query":      {"search", "find", "select"},
	"insert":     {"add", "create", "save"},
	"update":     {"modify", "edit", "change"},
	"delete":     {"remove", "drop", "destroy"},
	"search":     {"find", "query", "lookup", "retrieve"},
	"find":       {"search", "get", "lookup", "query"},
	"index":      {"indexer", "indexing", "catalog"},
	"embed":      {"embedding", "embedder", "vector"},
	"embedding":  {"embed", "vector"},
	"vector":     {"embedding", "dense", "semantic"},
	"chunk":      {"segment", "block", "piece"},
	"token":      {"tokenize", "tokenizer", "word"},
	"parse":      {"parser", "parsing"},
	"create":     {"new", "make", "init", "initialize"},
	"new":        {"create", "make", "init"},
	"init":       {"initialize", "setup", "new"},
	"get":        {"fetch", "retrieve", "read", "load"},
	"set":        {"put", "assign", "write", "store"},
	"read":       {"get", "load", "fetch"},
	"write":      {"save", "store", "put"},
	"load":       {"read", "get", "fetch", "parse"},
	"save":       {"write", "store", "persist"},
	"test":       {"testing", "check", "verify"},
	"mock":       {"fake", "stub", "spy"},
	"assert":     {"expect", "require", "check"},
	"async":      {"goroutine", "concurrent", "parallel"},
	"goroutine":  {"async", "concurrent"},
	"channel":    {"chan", "pipe"},
	"mutex":      {"lock", "sync"},
	"lock":       {"mutex", "sync"},
	"file":       {"path", "filesystem"},
	"path":       {"file", "filepath", "directory"},
	"directory":  {"dir", "folder", "path"},
	"log":        {"logger", "logging"},
	"debug":      {"trace", "verbose", "log"},
	"implementation": {"impl", "implement"},
	"parameter":      {"param", "arg", "argument"},
	"argument":       {"arg", "param", "parameter"},
}

// maxSynonymsPerTerm bounds how many synonyms one term contributes, so a
// single generic word (e.g. "get") cannot flood the keyword set.
const maxSynonymsPerTerm = 3

// ExpandKeywords returns keywords plus, for each keyword with an entry in
// codeSynonyms, up to maxSynonymsPerTerm additional code-vocabulary terms
// not already present. It is a pure function over a keyword set, not a
// tokenizer: call it on the output of deriveSignals.
func ExpandKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords)*2)
	expanded := make([]string, 0, len(keywords)*2)
	for _, k := range keywords {
		lower := strings.ToLower(k)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		expanded = append(expanded, k)
	}

	for _, k := range keywords {
		syns := codeSynonyms[strings.ToLower(k)]
		added := 0
		for _, syn := range syns {
			if added >= maxSynonymsPerTerm {
				break
			}
			lower := strings.ToLower(syn)
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			expanded = append(expanded, syn)
			added++
		}

		for _, part := range splitCamelSnake(k) {
			lower := strings.ToLower(part)
			if part == k || lower == strings.ToLower(k) {
				continue
			}
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			expanded = append(expanded, part)
		}
	}

	return expanded
}

// splitCamelSnake splits a token on camelCase/PascalCase/snake_case word
// boundaries, e.g. "searchFunction" -> ["search", "Function"].
func splitCamelSnake(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, p := range strings.Split(token, "_") {
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}

	var parts []string
	var current strings.Builder
	for i, r := range token {
		if i > 0 && unicode.IsUpper(r) && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
